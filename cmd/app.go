package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jfmyers9/tracklist/internal/config"
	"github.com/jfmyers9/tracklist/internal/metrics"
	"github.com/jfmyers9/tracklist/internal/player"
	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/rs/zerolog"
)

// app bundles the configuration, logger and session every command uses
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	sess   *session.Session
}

// loadConfig loads configuration and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if playlistFlag != "" {
		cfg.PlaylistFile = playlistFlag
	}
	return cfg, nil
}

// newApp loads configuration and opens a session with the configured player
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(logFileFlag, logLevelFlag, commandName)
	return openApp(ctx, cfg, newPlayer(cfg, logger), logger)
}

// openApp opens a session over p
func openApp(ctx context.Context, cfg *config.Config, p player.Player, logger zerolog.Logger) (*app, error) {
	sess, err := session.Open(ctx, sessionOptions(cfg), p, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, sess: sess}, nil
}

// close flushes pending changes. A flush failure is reported, not returned,
// so command output stays the primary result.
func (a *app) close() {
	if err := a.sess.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close session")
	}
}

// serveMetrics starts the status server when --metrics-addr is set
func (a *app) serveMetrics(ctx context.Context) {
	if metricsAddrFlag == "" {
		return
	}
	srv := metrics.NewServer(metricsAddrFlag, func() any { return a.sess.Snapshot() }, a.logger)
	go func() {
		if err := srv.Run(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Status server error")
		}
	}()
}

// newPlayer builds the external player from config, falling back to the
// platform default command
func newPlayer(cfg *config.Config, logger zerolog.Logger) *player.ExecPlayer {
	command, args := cfg.Player.Command, cfg.Player.Args
	if command == "" {
		command, args = player.DefaultCommand()
	}
	return player.NewExecPlayer(command, args, logger)
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		PlaylistFile:     cfg.PlaylistFile,
		LibraryDir:       cfg.ResolvedLibraryDir(),
		StateFile:        cfg.StateFile(),
		HistoryDB:        cfg.HistoryDB(),
		MaxNameLength:    cfg.MaxNameLength,
		Deferred:         cfg.PersistMode == config.PersistDeferred,
		AutoAdvance:      cfg.AutoAdvance,
		WatchInterval:    time.Duration(cfg.WatchInterval) * time.Millisecond,
		HistoryRetention: time.Duration(cfg.HistoryRetentionDays) * 24 * time.Hour,
	}
}

// playMessage returns the line shown for the outcome of a play or
// navigation request
func playMessage(e playlist.Entry, err error) string {
	switch {
	case err == nil:
		return "Now playing: " + e.Name
	case errors.Is(err, player.ErrResourceMissing):
		return "File not found: " + e.Name
	case errors.Is(err, playlist.ErrInvalidSelection):
		return "Invalid song number."
	case errors.Is(err, playlist.ErrNoNext):
		return "End of playlist or no valid next song found."
	case errors.Is(err, playlist.ErrNoPrevious):
		return "Start of playlist or no valid previous song found."
	case errors.Is(err, session.ErrNoCurrent):
		return "No song to play."
	default:
		return "Error: " + err.Error()
	}
}

// mutationMessage returns the line shown after adding or removing name.
// ok is false when the mutation did not happen.
func mutationMessage(verb, name string, err error) (msg string, ok bool) {
	var perr *playlist.PersistError
	switch {
	case err == nil:
		return fmt.Sprintf("%s: %s", verb, name), true
	case errors.As(err, &perr):
		return fmt.Sprintf("%s: %s (warning: playlist not saved: %v)", verb, name, perr.Err), true
	case errors.Is(err, playlist.ErrNotFound):
		return "Song not found: " + name, false
	case errors.Is(err, playlist.ErrEmptyName),
		errors.Is(err, playlist.ErrNameTooLong),
		errors.Is(err, playlist.ErrInvalidName):
		return "Invalid name: " + err.Error(), false
	default:
		return "Error: " + err.Error(), false
	}
}

// printSkipped reports entries navigation passed over
func printSkipped(w io.Writer, skipped []playlist.Entry) {
	for _, e := range skipped {
		fmt.Fprintf(w, "Skipping missing file: %s\n", e.Name)
	}
}

// syncWriter serializes writes from the command loop and the watcher
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
