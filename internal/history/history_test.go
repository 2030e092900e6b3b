package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestLog creates an in-memory SQLite log for testing
func createTestLog(t *testing.T) *Log {
	t.Helper()

	log, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		log, err := Open(":memory:")
		if err != nil {
			t.Fatalf("failed to open in-memory log: %v", err)
		}
		defer func() { _ = log.Close() }()

		if log.db == nil {
			t.Error("log database is nil")
		}
	})

	t.Run("file-based database persists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")
		ctx := context.Background()

		log, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open file log: %v", err)
		}
		if _, err := log.Record(ctx, Play{Name: "a.wav", Outcome: OutcomePlayed}); err != nil {
			t.Fatalf("Record: %v", err)
		}
		_ = log.Close()

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("failed to reopen log: %v", err)
		}
		defer func() { _ = reopened.Close() }()

		count, err := reopened.Count(ctx)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 play after reopen, got %d", count)
		}
	})
}

func TestRecord(t *testing.T) {
	log := createTestLog(t)
	ctx := context.Background()

	id, err := log.Record(ctx, Play{Name: "song.wav", Outcome: OutcomePlayed})
	if err != nil {
		t.Fatalf("failed to record play: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive id, got %d", id)
	}

	plays, err := log.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(plays) != 1 {
		t.Fatalf("expected 1 play, got %d", len(plays))
	}
	if plays[0].PlayedAt.IsZero() {
		t.Error("PlayedAt should default to now")
	}
	if plays[0].Error != "" {
		t.Errorf("Error = %q, want empty", plays[0].Error)
	}
}

func TestRecent_NewestFirstWithLimit(t *testing.T) {
	log := createTestLog(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	names := []string{"first", "second", "third", "fourth"}
	for i, name := range names {
		_, err := log.Record(ctx, Play{
			Name:     name,
			PlayedAt: base.Add(time.Duration(i) * time.Minute),
			Outcome:  OutcomePlayed,
		})
		if err != nil {
			t.Fatalf("Record(%q): %v", name, err)
		}
	}

	plays, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(plays) != 2 {
		t.Fatalf("expected 2 plays, got %d", len(plays))
	}
	if plays[0].Name != "fourth" || plays[1].Name != "third" {
		t.Errorf("Recent order = %q, %q", plays[0].Name, plays[1].Name)
	}
}

func TestRecord_OutcomeAndError(t *testing.T) {
	log := createTestLog(t)
	ctx := context.Background()

	_, err := log.Record(ctx, Play{Name: "gone.wav", Outcome: OutcomeMissing, Error: "file not found"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	plays, err := log.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if plays[0].Outcome != OutcomeMissing {
		t.Errorf("Outcome = %q, want %q", plays[0].Outcome, OutcomeMissing)
	}
	if plays[0].Error != "file not found" {
		t.Errorf("Error = %q", plays[0].Error)
	}
}

func TestCleanup(t *testing.T) {
	log := createTestLog(t)
	ctx := context.Background()

	old := Play{Name: "old", PlayedAt: time.Now().Add(-48 * time.Hour), Outcome: OutcomePlayed}
	recent := Play{Name: "recent", PlayedAt: time.Now().Add(-time.Minute), Outcome: OutcomePlayed}
	for _, p := range []Play{old, recent} {
		if _, err := log.Record(ctx, p); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	deleted, err := log.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	plays, err := log.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(plays) != 1 || plays[0].Name != "recent" {
		t.Errorf("remaining plays = %v", plays)
	}
}
