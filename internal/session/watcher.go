package session

import (
	"context"
	"errors"
	"time"

	"github.com/jfmyers9/tracklist/internal/playlist"
)

// EventKind identifies what the watcher observed
type EventKind int

const (
	EventFinished  EventKind = iota // Playback ended on its own
	EventAdvanced                   // The next available entry started playing
	EventExhausted                  // No later entry is available
	EventError                      // Advancing failed
)

// String returns the string representation of an EventKind
func (k EventKind) String() string {
	switch k {
	case EventFinished:
		return "finished"
	case EventAdvanced:
		return "advanced"
	case EventExhausted:
		return "exhausted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent by Watch when playback state changes
type Event struct {
	Kind    EventKind
	Entry   playlist.Entry   // Finished or newly playing entry
	Skipped []playlist.Entry // Entries passed over while advancing
	Err     error            // Set for EventError
}

// Watch polls the player and, when playback started by this session ends,
// auto-advances if enabled. Events are sent to events when it is non-nil.
// Blocks until ctx is cancelled.
func (s *Session) Watch(ctx context.Context, events chan<- Event) error {
	s.logger.Debug().
		Dur("interval", s.opts.WatchInterval).
		Bool("auto_advance", s.opts.AutoAdvance).
		Msg("Starting playback watcher")

	ticker := time.NewTicker(s.opts.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("Playback watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			for _, ev := range s.poll(ctx) {
				if events == nil {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// poll checks the player once and returns the resulting events
func (s *Session) poll(ctx context.Context) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || s.player.Playing() {
		return nil
	}

	s.playing = false
	if err := s.state.MarkStopped(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save session state")
	}

	finished := s.nowPlaying
	resume, resumeAt := s.resume, s.resumeAt
	s.resume, s.resumeAt = false, playlist.Entry{}

	s.logger.Debug().Str("track", finished.Name).Msg("Playback finished")
	events := []Event{{Kind: EventFinished, Entry: finished}}

	if !s.opts.AutoAdvance {
		return events
	}

	var step Step
	var err error
	if resume {
		step, err = s.resumeLocked(ctx, resumeAt)
	} else {
		step, err = s.moveLocked(ctx, true)
	}
	switch {
	case errors.Is(err, playlist.ErrNoNext):
		s.logger.Info().Msg("End of playlist")
		events = append(events, Event{Kind: EventExhausted, Skipped: step.Skipped})
	case err != nil:
		s.logger.Warn().Err(err).Msg("Auto-advance failed")
		events = append(events, Event{Kind: EventError, Entry: step.Entry, Skipped: step.Skipped, Err: err})
	default:
		events = append(events, Event{Kind: EventAdvanced, Entry: step.Entry, Skipped: step.Skipped})
	}
	return events
}
