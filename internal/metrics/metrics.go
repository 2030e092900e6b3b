package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Playlist metrics
var (
	PlaylistEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracklist_playlist_entries",
			Help: "Number of entries in the playlist",
		},
	)

	PlaylistMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracklist_playlist_mutations_total",
			Help: "Total number of playlist mutations",
		},
		[]string{"op"}, // "add", "remove"
	)

	PersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracklist_persist_errors_total",
			Help: "Total number of failed playlist saves",
		},
	)
)

// Navigation and playback metrics
var (
	NavigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracklist_navigations_total",
			Help: "Total number of cursor moves",
		},
		[]string{"direction", "result"}, // direction: "next", "prev", "select"; result: "ok", "exhausted", "invalid"
	)

	SkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracklist_skipped_total",
			Help: "Total number of entries skipped because their file was missing",
		},
	)

	PlaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracklist_plays_total",
			Help: "Total number of play requests",
		},
		[]string{"outcome"}, // "played", "missing", "failed"
	)
)
