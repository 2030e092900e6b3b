package playlist

import (
	"github.com/rs/zerolog"
)

// ResourceChecker reports whether the resource behind a name is available
type ResourceChecker interface {
	Exists(name string) bool
}

// CheckerFunc adapts a function to the ResourceChecker interface
type CheckerFunc func(name string) bool

// Exists calls f(name)
func (f CheckerFunc) Exists(name string) bool {
	return f(name)
}

// Navigator moves a Store's cursor, skipping entries whose resource is
// missing. Explicit selection by index bypasses the existence check.
type Navigator struct {
	store   *Store
	checker ResourceChecker
	onSkip  func(Entry)
	logger  zerolog.Logger
}

// NavigatorOption configures a Navigator
type NavigatorOption func(*Navigator)

// WithSkipHandler registers a callback invoked once per skipped entry.
// It runs while the store is locked and must not call back into the store.
func WithSkipHandler(fn func(Entry)) NavigatorOption {
	return func(n *Navigator) {
		n.onSkip = fn
	}
}

// WithNavigatorLogger sets the logger used to report skipped entries
func WithNavigatorLogger(logger zerolog.Logger) NavigatorOption {
	return func(n *Navigator) {
		n.logger = logger.With().Str("component", "navigator").Logger()
	}
}

// NewNavigator creates a Navigator over store
func NewNavigator(store *Store, checker ResourceChecker, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		store:   store,
		checker: checker,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Advance moves the cursor to the first available entry after the current
// one. Returns ErrNoNext, leaving the cursor alone, when the cursor is
// unset or no later entry is available.
func (n *Navigator) Advance() (Entry, error) {
	return n.scan(true)
}

// Retreat moves the cursor to the first available entry before the current
// one. Returns ErrNoPrevious, leaving the cursor alone, when the cursor is
// unset or no earlier entry is available.
func (n *Navigator) Retreat() (Entry, error) {
	return n.scan(false)
}

// SelectIndex moves the cursor to the entry at 1-based position i without
// checking that its resource exists.
func (n *Navigator) SelectIndex(i int) (Entry, error) {
	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 1 || i > s.count {
		return Entry{}, ErrInvalidSelection
	}

	slot := s.head
	for pos := 1; pos < i; pos++ {
		slot = s.nodes[slot].next
	}
	s.current = slot
	return s.nodes[slot].entry, nil
}

func (n *Navigator) scan(forward bool) (Entry, error) {
	exhausted := ErrNoPrevious
	if forward {
		exhausted = ErrNoNext
	}

	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == none {
		return Entry{}, exhausted
	}

	step := func(slot int) int {
		if forward {
			return s.nodes[slot].next
		}
		return s.nodes[slot].prev
	}

	for slot := step(s.current); slot != none; slot = step(slot) {
		e := s.nodes[slot].entry
		if n.checker.Exists(e.Name) {
			s.current = slot
			return e, nil
		}
		n.skip(e)
	}

	return Entry{}, exhausted
}

func (n *Navigator) skip(e Entry) {
	n.logger.Warn().Str("track", e.Name).Msg("Skipping missing file")
	if n.onSkip != nil {
		n.onSkip(e)
	}
}
