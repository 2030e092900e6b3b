package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrNotFound is returned by Load when the store file does not exist.
	// It is informational: the accompanying name list is empty and usable.
	ErrNotFound = errors.New("storage: store file not found")

	// ErrUnrepresentable is returned by Save for names containing a line
	// break, which the one-name-per-line format cannot hold.
	ErrUnrepresentable = errors.New("storage: name contains a line break")
)

// IOError reports a failed read or write of the store file
type IOError struct {
	Op   string // "open", "read", "write", "rename", "mkdir"
	Path string
	Err  error
}

// Error returns the error message.
func (e *IOError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// TextStore persists an ordered list of names as a plain text file with one
// name per line
type TextStore struct {
	path string
}

// NewTextStore creates a TextStore backed by the file at path
func NewTextStore(path string) *TextStore {
	return &TextStore{path: path}
}

// Path returns the store file path
func (t *TextStore) Path() string {
	return t.path
}

// Save replaces the store file with names, one per line, each terminated by
// a newline. The file is written to a temporary sibling and renamed into
// place so a failed write never leaves a partial store.
func (t *TextStore) Save(names []string) error {
	for _, name := range names {
		if strings.ContainsAny(name, "\r\n") {
			return fmt.Errorf("%w: %q", ErrUnrepresentable, name)
		}
	}

	// Ensure directory exists
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmpPath := t.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &IOError{Op: "open", Path: tmpPath, Err: err}
	}

	w := bufio.NewWriter(f)
	for _, name := range names {
		w.WriteString(name)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, t.path); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "rename", Path: t.path, Err: err}
	}

	return nil
}

// Load reads the names in file order. One trailing "\n" (and a "\r" before
// it) is stripped from each line and blank lines are skipped. A leading
// byte order mark is honoured, so UTF-16 files with a BOM are decoded.
//
// A missing file yields an empty list together with ErrNotFound.
func (t *TextStore) Load() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, fmt.Errorf("%w: %s", ErrNotFound, t.path)
		}
		return nil, &IOError{Op: "open", Path: t.path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(transform.NewReader(f, unicode.BOMOverride(transform.Nop)))

	names := []string{}
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if line != "" {
				names = append(names, line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &IOError{Op: "read", Path: t.path, Err: err}
		}
	}

	return names, nil
}
