package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Outcome describes how a play request ended
type Outcome string

const (
	OutcomePlayed  Outcome = "played"  // Player started
	OutcomeMissing Outcome = "missing" // File was not found
	OutcomeFailed  Outcome = "failed"  // Player could not be started
)

// Play is one recorded play request
type Play struct {
	ID       int64
	Name     string
	PlayedAt time.Time
	Outcome  Outcome
	Error    string
}

// Log is a persistent play history backed by SQLite
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dbPath.
// Use ":memory:" for a throwaway log.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			played_at INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_played_at ON plays(played_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the database connection
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Record appends a play to the log
func (l *Log) Record(ctx context.Context, p Play) (int64, error) {
	if p.PlayedAt.IsZero() {
		p.PlayedAt = time.Now()
	}

	query := `
		INSERT INTO plays (name, played_at, outcome, error)
		VALUES (?, ?, ?, NULLIF(?, ''))
	`

	result, err := l.db.ExecContext(ctx, query,
		p.Name,
		p.PlayedAt.UnixMilli(),
		string(p.Outcome),
		p.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}

	return id, nil
}

// Recent returns the most recent plays, newest first.
// A limit <= 0 returns every play.
func (l *Log) Recent(ctx context.Context, limit int) ([]Play, error) {
	query := `
		SELECT id, name, played_at, outcome, COALESCE(error, '')
		FROM plays
		ORDER BY played_at DESC, id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		var playedAt int64
		var outcome string

		if err := rows.Scan(&p.ID, &p.Name, &playedAt, &outcome, &p.Error); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}

		p.PlayedAt = time.UnixMilli(playedAt)
		p.Outcome = Outcome(outcome)
		plays = append(plays, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}

	return plays, nil
}

// Count returns the number of recorded plays
func (l *Log) Count(ctx context.Context) (int, error) {
	var count int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plays").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// Cleanup removes plays older than maxAge
func (l *Log) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	result, err := l.db.ExecContext(ctx, "DELETE FROM plays WHERE played_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old plays: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
