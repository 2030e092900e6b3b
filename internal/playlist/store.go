package playlist

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxNameLength is the longest accepted entry name in bytes.
const DefaultMaxNameLength = 4096

// none marks an absent slot in the arena links.
const none = -1

// Entry is a single track reference held by a Store
type Entry struct {
	ID   uuid.UUID // Stable handle, unique for the life of the store
	Name string    // Track name or path as entered
}

// Persister receives the full ordered list of names after each mutation
type Persister interface {
	Save(names []string) error
}

// node is one arena slot. Unused slots sit on the free list.
type node struct {
	entry Entry
	prev  int
	next  int
	used  bool
}

// Store is an ordered sequence of entries with a movable cursor.
//
// Entries live in an arena indexed by integer slots; prev/next links are
// slot indices, so removal never leaves a dangling reference. Handles
// (Entry.ID) stay valid until the entry is removed and are never reused.
type Store struct {
	mu      sync.RWMutex
	nodes   []node
	free    []int
	index   map[uuid.UUID]int
	head    int
	tail    int
	current int
	count   int

	persister     Persister
	maxNameLength int
	deferred      bool
	dirty         bool
	logger        zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithPersister sets the persister written after every add or remove
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithMaxNameLength overrides DefaultMaxNameLength. Values <= 0 are ignored.
func WithMaxNameLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxNameLength = n
		}
	}
}

// WithDeferredSave makes mutations mark the store dirty instead of writing
// through. Pending changes are written by Flush.
func WithDeferredSave() Option {
	return func(s *Store) {
		s.deferred = true
	}
}

// WithLogger sets the logger used to report persistence failures
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "playlist").Logger()
	}
}

// New creates an empty Store
func New(opts ...Option) *Store {
	s := &Store{
		index:         make(map[uuid.UUID]int),
		head:          none,
		tail:          none,
		current:       none,
		maxNameLength: DefaultMaxNameLength,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxNameLength returns the longest name Add accepts, in bytes
func (s *Store) MaxNameLength() int {
	return s.maxNameLength
}

// Add appends a new entry at the tail. The first entry added to an empty
// store becomes current.
//
// If the entry was added but could not be persisted, the returned Entry is
// valid and the error is a *PersistError.
func (s *Store) Add(name string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateName(name); err != nil {
		return Entry{}, err
	}

	e := s.appendLocked(name)
	return e, s.saveLocked("add")
}

// Load appends names in order without writing to the persister, since the
// names came from it. Invalid names are skipped; their errors are joined
// into the returned error and the remaining names are still loaded.
func (s *Store) Load(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i, name := range names {
		if err := s.validateName(name); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i+1, err))
			continue
		}
		s.appendLocked(name)
	}

	return errors.Join(errs...)
}

// Remove deletes the first entry named name. If it was current, the cursor
// moves to the following entry, else the preceding one, else it is unset.
//
// Returns ErrNotFound if nothing matches. A *PersistError means the entry
// was removed but the change was not saved.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.findLocked(name)
	if slot == none {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	s.unlinkLocked(slot)
	return s.saveLocked("remove")
}

// RemoveEntry deletes the entry with the given handle. It follows the same
// cursor and persistence rules as Remove.
func (s *Store) RemoveEntry(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.unlinkLocked(slot)
	return s.saveLocked("remove")
}

// Find returns the first entry named name
func (s *Store) Find(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot := s.findLocked(name)
	if slot == none {
		return Entry{}, false
	}
	return s.nodes[slot].entry, true
}

// Get returns the entry with the given handle
func (s *Store) Get(id uuid.UUID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.nodes[slot].entry, true
}

// Position returns the 1-based position of the entry with the given handle
func (s *Store) Position(id uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := 1
	for i := s.head; i != none; i = s.nodes[i].next {
		if s.nodes[i].entry.ID == id {
			return pos, true
		}
		pos++
	}
	return 0, false
}

// All returns a lazy iterator over the entries in order, paired with their
// 1-based positions. Each call starts a fresh traversal.
//
// The store may be mutated while iterating; if the next entry to visit has
// been removed in the meantime, iteration stops there.
func (s *Store) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		s.mu.RLock()
		slot := s.head
		var want uuid.UUID
		if slot != none {
			want = s.nodes[slot].entry.ID
		}
		s.mu.RUnlock()

		for pos := 1; slot != none; pos++ {
			s.mu.RLock()
			n := s.nodes[slot]
			if !n.used || n.entry.ID != want {
				s.mu.RUnlock()
				return
			}
			next := n.next
			if next != none {
				want = s.nodes[next].entry.ID
			}
			s.mu.RUnlock()

			if !yield(pos, n.entry) {
				return
			}
			slot = next
		}
	}
}

// Entries returns a snapshot of all entries in order
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, s.count)
	for i := s.head; i != none; i = s.nodes[i].next {
		entries = append(entries, s.nodes[i].entry)
	}
	return entries
}

// Names returns a snapshot of all entry names in order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.namesLocked()
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.count
}

// Current returns the entry under the cursor, if any
func (s *Store) Current() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == none {
		return Entry{}, false
	}
	return s.nodes[s.current].entry, true
}

// Select moves the cursor to the entry with the given handle
func (s *Store) Select(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.current = slot
	return nil
}

// Clear drops every entry and unsets the cursor. Storage is not touched and
// any unflushed change is discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nil
	s.free = nil
	s.index = make(map[uuid.UUID]int)
	s.head, s.tail, s.current = none, none, none
	s.count = 0
	s.dirty = false
}

// Dirty reports whether there are changes not yet written to the persister
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dirty
}

// Flush writes pending changes. It is a no-op when nothing is pending.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || s.persister == nil {
		return nil
	}
	return s.writeLocked("flush")
}

func (s *Store) validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > s.maxNameLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrNameTooLong, len(name), s.maxNameLength)
	}
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// appendLocked links a new entry at the tail, reusing a free slot if any.
// Must be called with s.mu held.
func (s *Store) appendLocked(name string) Entry {
	e := Entry{ID: newID(), Name: name}
	n := node{entry: e, prev: s.tail, next: none, used: true}

	var slot int
	if k := len(s.free); k > 0 {
		slot = s.free[k-1]
		s.free = s.free[:k-1]
		s.nodes[slot] = n
	} else {
		slot = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}

	if s.tail == none {
		s.head = slot
		s.current = slot
	} else {
		s.nodes[s.tail].next = slot
	}
	s.tail = slot
	s.index[e.ID] = slot
	s.count++

	return e
}

// unlinkLocked removes a slot from the sequence and returns it to the free
// list. Must be called with s.mu held.
func (s *Store) unlinkLocked(slot int) {
	n := s.nodes[slot]

	if n.prev != none {
		s.nodes[n.prev].next = n.next
	} else {
		s.head = n.next
	}
	if n.next != none {
		s.nodes[n.next].prev = n.prev
	} else {
		s.tail = n.prev
	}

	if s.current == slot {
		if n.next != none {
			s.current = n.next
		} else {
			s.current = n.prev
		}
	}

	delete(s.index, n.entry.ID)
	s.nodes[slot] = node{prev: none, next: none}
	s.free = append(s.free, slot)
	s.count--
}

func (s *Store) findLocked(name string) int {
	for i := s.head; i != none; i = s.nodes[i].next {
		if s.nodes[i].entry.Name == name {
			return i
		}
	}
	return none
}

func (s *Store) namesLocked() []string {
	names := make([]string, 0, s.count)
	for i := s.head; i != none; i = s.nodes[i].next {
		names = append(names, s.nodes[i].entry.Name)
	}
	return names
}

// saveLocked persists after a mutation, or only marks the store dirty in
// deferred mode. Must be called with s.mu held.
func (s *Store) saveLocked(op string) error {
	if s.persister == nil {
		return nil
	}
	if s.deferred {
		s.dirty = true
		return nil
	}
	return s.writeLocked(op)
}

func (s *Store) writeLocked(op string) error {
	if err := s.persister.Save(s.namesLocked()); err != nil {
		s.dirty = true
		s.logger.Warn().
			Err(err).
			Str("op", op).
			Int("entries", s.count).
			Msg("Playlist changed in memory but not saved")
		return &PersistError{Op: op, Err: err}
	}
	s.dirty = false
	return nil
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
