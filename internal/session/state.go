package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CursorState is the part of a session that outlives the process: where the
// cursor was and what the player was doing
type CursorState struct {
	Name       string    // Name of the current entry ("" if unset)
	Position   int       // 1-based position of the current entry (0 if unset)
	Playing    bool      // Whether playback was started and not stopped
	PlayerPID  int       // Process id of a detached player (0 if none)
	LastPlayed time.Time // When playback last started
}

// State manages the cursor state with thread-safe access and persistence
type State struct {
	mu       sync.RWMutex
	current  CursorState
	filePath string // Path to state file for persistence
}

// persistedState is the JSON representation of state for disk storage
type persistedState struct {
	Name       string    `json:"name,omitempty"`
	Position   int       `json:"position,omitempty"`
	Playing    bool      `json:"playing"`
	PlayerPID  int       `json:"player_pid,omitempty"`
	LastPlayed time.Time `json:"last_played,omitempty"`
}

// NewState creates a new State instance
// If filePath is provided, attempts to restore state from disk
func NewState(filePath string) (*State, error) {
	s := &State{
		filePath: filePath,
	}

	// Try to restore state from disk if file exists
	if filePath != "" {
		if err := s.restore(); err != nil && !os.IsNotExist(err) {
			// Not fatal - the session can start with a fresh cursor
			return s, err
		}
	}

	return s, nil
}

// Get returns a copy of the current state
func (s *State) Get() CursorState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// SetCursor records the current entry, or clears it when name is ""
func (s *State) SetCursor(name string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Name == name && s.current.Position == position {
		return nil
	}
	s.current.Name = name
	s.current.Position = position
	return s.persist()
}

// MarkPlaying records that playback started, with the pid of the player
// process if it should be reachable from later invocations
func (s *State) MarkPlaying(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Playing = true
	s.current.PlayerPID = pid
	s.current.LastPlayed = time.Now()
	return s.persist()
}

// MarkStopped records that playback ended
func (s *State) MarkStopped() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Playing && s.current.PlayerPID == 0 {
		return nil
	}
	s.current.Playing = false
	s.current.PlayerPID = 0
	return s.persist()
}

// persist saves the current state to disk
// Must be called with lock held
func (s *State) persist() error {
	if s.filePath == "" {
		return nil // No persistence configured
	}

	ps := persistedState(s.current)

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.filePath)
}

// restore loads state from disk
func (s *State) restore() error {
	if s.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = CursorState(ps)

	return nil
}
