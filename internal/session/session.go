package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfmyers9/tracklist/internal/history"
	"github.com/jfmyers9/tracklist/internal/metrics"
	"github.com/jfmyers9/tracklist/internal/player"
	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/storage"
	"github.com/rs/zerolog"
)

// ErrNoCurrent is returned by Play when no entry is selected
var ErrNoCurrent = errors.New("session: no current entry")

// Options holds session configuration
type Options struct {
	PlaylistFile     string        // Text store path
	LibraryDir       string        // Base for relative track names ("" = playlist directory)
	StateFile        string        // Cursor state path ("" = in-memory)
	HistoryDB        string        // Play history database ("" = disabled)
	MaxNameLength    int           // Longest accepted name in bytes
	Deferred         bool          // Save on Flush/Close instead of after every mutation
	AutoAdvance      bool          // Play the next available entry when playback finishes
	WatchInterval    time.Duration // How often Watch polls the player
	HistoryRetention time.Duration // Prune plays older than this on open (0 = keep all)
}

// Item is one row of a playlist listing
type Item struct {
	Position  int
	Entry     playlist.Entry
	Current   bool
	Available bool // Backing file exists
}

// Step is the result of moving the cursor
type Step struct {
	Entry   playlist.Entry   // Entry the cursor landed on
	Skipped []playlist.Entry // Entries passed over because their file was missing
}

// Session ties the playlist, its text store, the player, cursor state and
// play history together. All methods are safe for concurrent use.
type Session struct {
	opts    Options
	store   *playlist.Store
	nav     *playlist.Navigator
	files   *storage.TextStore
	checker *player.FileChecker
	player  player.Player
	state   *State
	history *history.Log
	logger  zerolog.Logger

	// mu serializes navigate-then-play so a watcher advance and a user
	// command cannot interleave
	mu           sync.Mutex
	playing      bool             // Playback started here and not yet finished or stopped
	nowPlaying   playlist.Entry   // Entry last handed to the player
	skipped      []playlist.Entry // Collected by onSkip during one scan
	storeMissing bool

	// Set when the playing entry was removed. The cursor then already sits
	// on its follower, so the next auto-advance plays resumeAt instead of
	// moving past it. resumeAt is zero when there was no follower.
	resume   bool
	resumeAt playlist.Entry
}

// Open loads the playlist and restores the cursor from the previous session
func Open(ctx context.Context, opts Options, p player.Player, logger zerolog.Logger) (*Session, error) {
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = playlist.DefaultMaxNameLength
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = 500 * time.Millisecond
	}
	libDir := opts.LibraryDir
	if libDir == "" {
		libDir = filepath.Dir(opts.PlaylistFile)
	}

	files := storage.NewTextStore(opts.PlaylistFile)
	storeOpts := []playlist.Option{
		playlist.WithPersister(files),
		playlist.WithMaxNameLength(opts.MaxNameLength),
		playlist.WithLogger(logger),
	}
	if opts.Deferred {
		storeOpts = append(storeOpts, playlist.WithDeferredSave())
	}

	s := &Session{
		opts:    opts,
		store:   playlist.New(storeOpts...),
		files:   files,
		checker: player.NewFileChecker(libDir),
		player:  p,
		logger:  logger.With().Str("component", "session").Logger(),
	}
	s.nav = playlist.NewNavigator(s.store, s.checker,
		playlist.WithSkipHandler(s.onSkip),
		playlist.WithNavigatorLogger(logger),
	)

	if err := s.load(); err != nil {
		return nil, err
	}

	state, err := NewState(opts.StateFile)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to restore session state, starting fresh")
	}
	s.state = state
	s.restoreCursor()

	if opts.HistoryDB != "" {
		if opts.HistoryDB != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.HistoryDB), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		h, err := history.Open(opts.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		s.history = h

		if opts.HistoryRetention > 0 {
			n, err := h.Cleanup(ctx, opts.HistoryRetention)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Failed to prune play history")
			} else if n > 0 {
				s.logger.Debug().Int64("deleted", n).Msg("Pruned play history")
			}
		}
	}

	metrics.PlaylistEntries.Set(float64(s.store.Len()))
	return s, nil
}

// load reads the text store into the playlist
func (s *Session) load() error {
	names, err := s.files.Load()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.storeMissing = true
		s.logger.Info().
			Str("path", s.files.Path()).
			Msg("No playlist file found, starting empty")
		return nil
	case err != nil:
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	if err := s.store.Load(names); err != nil {
		s.logger.Warn().Err(err).Msg("Skipped invalid playlist entries")
	}

	s.logger.Debug().
		Str("path", s.files.Path()).
		Int("entries", s.store.Len()).
		Msg("Playlist loaded")
	return nil
}

// restoreCursor reselects the entry the previous session left current.
// A saved position wins when it still names the same track, which keeps the
// right duplicate selected.
func (s *Session) restoreCursor() {
	saved := s.state.Get()
	if saved.Name == "" {
		return
	}

	entries := s.store.Entries()
	if saved.Position >= 1 && saved.Position <= len(entries) && entries[saved.Position-1].Name == saved.Name {
		_ = s.store.Select(entries[saved.Position-1].ID)
		return
	}
	if e, ok := s.store.Find(saved.Name); ok {
		_ = s.store.Select(e.ID)
		return
	}

	s.logger.Debug().Str("track", saved.Name).Msg("Saved cursor no longer in playlist")
}

// StoreMissing reports whether the playlist file did not exist at Open
func (s *Session) StoreMissing() bool {
	return s.storeMissing
}

// PlaylistPath returns the text store path
func (s *Session) PlaylistPath() string {
	return s.files.Path()
}

// Saved returns the cursor and playback state last written to disk
func (s *Session) Saved() CursorState {
	return s.state.Get()
}

// Add appends a track. A *playlist.PersistError means the entry was added
// but could not be saved.
func (s *Session) Add(name string) (playlist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.store.Add(name)
	if err != nil && !isPersistError(err) {
		return e, err
	}

	metrics.PlaylistMutationsTotal.WithLabelValues("add").Inc()
	metrics.PlaylistEntries.Set(float64(s.store.Len()))
	s.syncCursor()
	return e, err
}

// Remove deletes the first entry named name
func (s *Session) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.store.Find(name)
	return s.removeLocked(e, func() error { return s.store.Remove(name) })
}

// RemoveEntry deletes the entry with the given handle
func (s *Session) RemoveEntry(e playlist.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(e, func() error { return s.store.RemoveEntry(e.ID) })
}

// removeLocked runs remove, which deletes e, and keeps auto-advance on
// track when e is the entry playing under the cursor. Must be called with
// s.mu held.
func (s *Session) removeLocked(e playlist.Entry, remove func() error) error {
	cur, hadCur := s.store.Current()
	pos, _ := s.store.Position(e.ID)

	err := remove()
	if err != nil && !isPersistError(err) {
		return err
	}

	if s.playing && hadCur && cur.ID == e.ID {
		s.resume = true
		s.resumeAt = playlist.Entry{}
		// The store moves the cursor to the follower, which takes over
		// the removed position, else to the predecessor
		if next, ok := s.store.Current(); ok {
			if p, _ := s.store.Position(next.ID); p == pos {
				s.resumeAt = next
			}
		}
	}

	metrics.PlaylistMutationsTotal.WithLabelValues("remove").Inc()
	metrics.PlaylistEntries.Set(float64(s.store.Len()))
	s.syncCursor()
	return err
}

// Search returns the first entry named name with its position
func (s *Session) Search(name string) (Item, bool) {
	e, ok := s.store.Find(name)
	if !ok {
		return Item{}, false
	}
	return s.item(e), true
}

// Current returns the entry under the cursor
func (s *Session) Current() (Item, bool) {
	e, ok := s.store.Current()
	if !ok {
		return Item{}, false
	}
	return s.item(e), true
}

func (s *Session) item(e playlist.Entry) Item {
	pos, _ := s.store.Position(e.ID)
	cur, ok := s.store.Current()
	return Item{
		Position:  pos,
		Entry:     e,
		Current:   ok && cur.ID == e.ID,
		Available: s.checker.Exists(e.Name),
	}
}

// List returns every entry in order
func (s *Session) List() []Item {
	cur, hasCur := s.store.Current()

	items := make([]Item, 0, s.store.Len())
	for pos, e := range s.store.All() {
		items = append(items, Item{
			Position:  pos,
			Entry:     e,
			Current:   hasCur && cur.ID == e.ID,
			Available: s.checker.Exists(e.Name),
		})
	}
	return items
}

// Playing reports whether playback started by this session is in progress
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.playing && s.player.Playing()
}

// PlayIndex selects the entry at 1-based position i and plays it
func (s *Session) PlayIndex(ctx context.Context, i int) (playlist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.nav.SelectIndex(i)
	if err != nil {
		metrics.NavigationsTotal.WithLabelValues("select", "invalid").Inc()
		return e, err
	}
	metrics.NavigationsTotal.WithLabelValues("select", "ok").Inc()
	s.syncCursor()

	return e, s.playLocked(ctx, e)
}

// Play plays the entry under the cursor
func (s *Session) Play(ctx context.Context) (playlist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store.Current()
	if !ok {
		return playlist.Entry{}, ErrNoCurrent
	}
	return e, s.playLocked(ctx, e)
}

// Next moves to the next available entry and plays it
func (s *Session) Next(ctx context.Context) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.moveLocked(ctx, true)
}

// Prev moves to the previous available entry and plays it
func (s *Session) Prev(ctx context.Context) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.moveLocked(ctx, false)
}

// moveLocked must be called with s.mu held
func (s *Session) moveLocked(ctx context.Context, forward bool) (Step, error) {
	direction := "next"
	move := s.nav.Advance
	if !forward {
		direction = "prev"
		move = s.nav.Retreat
	}

	s.skipped = nil
	e, err := move()
	step := Step{Entry: e, Skipped: s.skipped}
	s.skipped = nil

	if err != nil {
		metrics.NavigationsTotal.WithLabelValues(direction, "exhausted").Inc()
		return step, err
	}
	metrics.NavigationsTotal.WithLabelValues(direction, "ok").Inc()
	s.syncCursor()

	return step, s.playLocked(ctx, e)
}

// resumeLocked plays the follower of a removed playing entry, or the next
// available entry after it when its file is missing. Must be called with
// s.mu held.
func (s *Session) resumeLocked(ctx context.Context, next playlist.Entry) (Step, error) {
	cur, ok := s.store.Current()
	if next == (playlist.Entry{}) || !ok || cur.ID != next.ID {
		metrics.NavigationsTotal.WithLabelValues("next", "exhausted").Inc()
		return Step{}, playlist.ErrNoNext
	}

	if !s.checker.Exists(cur.Name) {
		s.logger.Warn().Str("track", cur.Name).Msg("Skipping missing file")
		metrics.SkippedTotal.Inc()
		step, err := s.moveLocked(ctx, true)
		step.Skipped = append([]playlist.Entry{cur}, step.Skipped...)
		return step, err
	}

	metrics.NavigationsTotal.WithLabelValues("next", "ok").Inc()
	return Step{Entry: cur}, s.playLocked(ctx, cur)
}

// onSkip runs inside a navigator scan, which Session only starts with s.mu
// held. It must not call back into the store.
func (s *Session) onSkip(e playlist.Entry) {
	s.skipped = append(s.skipped, e)
	metrics.SkippedTotal.Inc()
}

// playLocked must be called with s.mu held
func (s *Session) playLocked(ctx context.Context, e playlist.Entry) error {
	if !s.checker.Exists(e.Name) {
		s.record(ctx, e, history.OutcomeMissing, "file not found")
		return fmt.Errorf("%w: %s", player.ErrResourceMissing, e.Name)
	}

	s.stopDetachedLocked()
	if err := s.player.Play(ctx, s.checker.Resolve(e.Name)); err != nil {
		s.record(ctx, e, history.OutcomeFailed, err.Error())
		return fmt.Errorf("failed to play %s: %w", e.Name, err)
	}

	s.playing = true
	s.nowPlaying = e
	s.resume, s.resumeAt = false, playlist.Entry{}
	s.record(ctx, e, history.OutcomePlayed, "")
	if err := s.state.MarkPlaying(s.player.PID()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save session state")
	}

	s.logger.Info().Str("track", e.Name).Msg("Now playing")
	return nil
}

// Stop ends playback, including a player left running by an earlier
// invocation
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopDetachedLocked()
	s.playing = false
	s.resume, s.resumeAt = false, playlist.Entry{}

	err := s.player.Stop(ctx)

	if serr := s.state.MarkStopped(); serr != nil {
		s.logger.Warn().Err(serr).Msg("Failed to save session state")
	}
	return err
}

// stopDetachedLocked stops a player left running by an earlier invocation,
// identified by the pid in the state file. Must be called with s.mu held.
func (s *Session) stopDetachedLocked() {
	savedPID := s.state.Get().PlayerPID
	if savedPID == 0 || savedPID == s.player.PID() || !player.PIDAlive(savedPID) {
		return
	}
	if err := player.StopPID(savedPID); err != nil {
		s.logger.Debug().Err(err).Int("pid", savedPID).Msg("Saved player process not stopped")
	} else {
		s.logger.Debug().Int("pid", savedPID).Msg("Stopped detached player")
	}
}

// History returns the most recent plays, newest first
func (s *Session) History(ctx context.Context, limit int) ([]history.Play, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, limit)
}

// HistoryCount returns the number of recorded plays
func (s *Session) HistoryCount(ctx context.Context) (int, error) {
	if s.history == nil {
		return 0, nil
	}
	return s.history.Count(ctx)
}

// Snapshot describes the playlist for the status endpoint
type Snapshot struct {
	Path    string          `json:"path"`
	Entries []SnapshotEntry `json:"entries"`
	Current int             `json:"current"` // 1-based, 0 if unset
	Playing bool            `json:"playing"`
	Unsaved bool            `json:"unsaved"` // Deferred changes not yet flushed
}

// SnapshotEntry is one entry of a Snapshot
type SnapshotEntry struct {
	Position  int    `json:"position"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Snapshot returns the current playlist and playback status
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Path:    s.files.Path(),
		Entries: []SnapshotEntry{},
		Playing: s.Playing(),
		Unsaved: s.store.Dirty(),
	}
	for _, it := range s.List() {
		if it.Current {
			snap.Current = it.Position
		}
		snap.Entries = append(snap.Entries, SnapshotEntry{
			Position:  it.Position,
			ID:        it.Entry.ID.String(),
			Name:      it.Entry.Name,
			Available: it.Available,
		})
	}
	return snap
}

// Flush writes pending playlist changes in deferred mode
func (s *Session) Flush() error {
	err := s.store.Flush()
	if err != nil {
		metrics.PersistErrorsTotal.Inc()
	}
	return err
}

// Close flushes pending changes and releases resources. Playback is left
// running; call Stop first to end it.
func (s *Session) Close() error {
	var errs []error

	if err := s.Flush(); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close history: %w", err))
		}
	}
	s.store.Clear()

	return errors.Join(errs...)
}

// syncCursor mirrors the cursor into the state file. Must be called with
// s.mu held.
func (s *Session) syncCursor() {
	var name string
	var pos int
	if e, ok := s.store.Current(); ok {
		name = e.Name
		pos, _ = s.store.Position(e.ID)
	}
	if err := s.state.SetCursor(name, pos); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save session state")
	}
}

// record appends a play to history and counts it
func (s *Session) record(ctx context.Context, e playlist.Entry, outcome history.Outcome, msg string) {
	metrics.PlaysTotal.WithLabelValues(string(outcome)).Inc()
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(ctx, history.Play{
		Name:     e.Name,
		PlayedAt: time.Now(),
		Outcome:  outcome,
		Error:    msg,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record play")
	}
}

func isPersistError(err error) bool {
	var perr *playlist.PersistError
	if errors.As(err, &perr) {
		metrics.PersistErrorsTotal.Inc()
		return true
	}
	return false
}
