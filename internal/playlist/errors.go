package playlist

import (
	"errors"
	"fmt"
)

// Predefined errors for playlist operations.
var (
	// ErrNotFound is returned when no entry matches a name or handle.
	ErrNotFound = errors.New("playlist: entry not found")

	// ErrInvalidSelection is returned when a 1-based index is out of range.
	ErrInvalidSelection = errors.New("playlist: invalid selection")

	// ErrNoNext is returned when forward navigation finds no playable entry.
	ErrNoNext = errors.New("playlist: no next entry")

	// ErrNoPrevious is returned when backward navigation finds no playable entry.
	ErrNoPrevious = errors.New("playlist: no previous entry")

	// ErrEmptyName is returned when adding an entry without a name.
	ErrEmptyName = errors.New("playlist: empty name")

	// ErrNameTooLong is returned when a name exceeds the configured maximum.
	ErrNameTooLong = errors.New("playlist: name too long")

	// ErrInvalidName is returned for names the text store cannot represent.
	ErrInvalidName = errors.New("playlist: name contains a line break")
)

// PersistError reports a failed write of the playlist to its persister.
//
// The in-memory mutation that triggered the write is not rolled back, so
// after a PersistError the store and its backing file disagree until the
// next successful save.
type PersistError struct {
	Op  string // Mutation that triggered the save ("add", "remove")
	Err error  // Underlying persister error
}

// Error returns the error message.
func (e *PersistError) Error() string {
	return fmt.Sprintf("playlist: %s applied but not saved: %v", e.Op, e.Err)
}

// Unwrap returns the underlying persister error.
func (e *PersistError) Unwrap() error {
	return e.Err
}
