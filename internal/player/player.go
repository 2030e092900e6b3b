package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// ErrResourceMissing is returned when asked to play a file that does not exist
var ErrResourceMissing = errors.New("player: file not found")

// Player starts and stops playback of audio files
type Player interface {
	// Play starts playing path in the background, replacing any current
	// playback. It returns once playback has started.
	Play(ctx context.Context, path string) error

	// Stop ends the current playback, if any
	Stop(ctx context.Context) error

	// Playing reports whether playback is in progress
	Playing() bool

	// PID returns the process id of the current playback, or 0
	PID() int
}

// FileChecker reports whether track files exist on disk. Relative names are
// resolved against BaseDir.
type FileChecker struct {
	BaseDir string
}

// NewFileChecker creates a FileChecker rooted at baseDir
func NewFileChecker(baseDir string) *FileChecker {
	return &FileChecker{BaseDir: baseDir}
}

// Resolve returns the filesystem path for a track name
func (c *FileChecker) Resolve(name string) string {
	if c.BaseDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.BaseDir, name)
}

// Exists reports whether name refers to an existing regular file
func (c *FileChecker) Exists(name string) bool {
	info, err := os.Stat(c.Resolve(name))
	if err != nil {
		return false
	}
	return !info.IsDir()
}
