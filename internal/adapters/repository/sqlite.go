package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/rover/internal/domain/command"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS commands (
	id             TEXT PRIMARY KEY,
	car_id         TEXT NOT NULL,
	mode           TEXT NOT NULL,
	goal           TEXT NOT NULL,
	correlation_id INTEGER NOT NULL,
	actions_json   TEXT NOT NULL,
	ball_count     INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commands_created_at ON commands(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_commands_goal ON commands(goal);
`

// SQLiteStore implements Store on a local sqlite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithClock sets the time source for created_at stamps.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLiteStore opens (or creates) the database at path and bootstraps the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveCommand persists one dispatched command.
func (s *SQLiteStore) SaveCommand(ctx context.Context, cmd command.Command) error {
	actions, err := json.Marshal(cmd.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO commands (id, car_id, mode, goal, correlation_id, actions_json, ball_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cmd.ID, cmd.CarID, cmd.Mode.String(), cmd.Goal.String(), cmd.CorrelationID,
		string(actions), cmd.BallCount, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// RecentCommands returns up to n commands, newest first.
func (s *SQLiteStore) RecentCommands(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, car_id, mode, goal, correlation_id, actions_json, ball_count, created_at
		 FROM commands ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var actionsJSON string
		if err := rows.Scan(&e.ID, &e.CarID, &e.Mode, &e.Goal, &e.CorrelationID,
			&actionsJSON, &e.BallCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		if err := json.Unmarshal([]byte(actionsJSON), &e.Actions); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return entries, nil
}

// GoalCounts returns the number of audited commands per goal tag.
func (s *SQLiteStore) GoalCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT goal, COUNT(*) FROM commands GROUP BY goal`)
	if err != nil {
		return nil, fmt.Errorf("query goal counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var goal string
		var count int
		if err := rows.Scan(&goal, &count); err != nil {
			return nil, fmt.Errorf("scan goal count: %w", err)
		}
		counts[goal] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goal counts: %w", err)
	}
	return counts, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
