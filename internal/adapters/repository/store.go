// Package repository defines the command audit store interface and errors.
// The history log the engine reasons over lives in memory; this store is the
// durable audit trail behind the stats pages.
package repository

import (
	"context"

	"github.com/okian/rover/internal/domain/command"
)

// Entry is one audited command row.
type Entry struct {
	ID            string           `json:"id"`
	CarID         string           `json:"car_id"`
	Mode          string           `json:"mode"`
	Goal          string           `json:"goal"`
	CorrelationID int64            `json:"correlation_id"`
	Actions       []command.Action `json:"actions,omitempty"`
	BallCount     int              `json:"ball_count,omitempty"`
	CreatedAt     string           `json:"created_at"`
}

// Store provides write-once, read-many access to the command audit trail.
type Store interface {
	// SaveCommand persists one dispatched command.
	SaveCommand(ctx context.Context, cmd command.Command) error

	// RecentCommands returns up to n commands, newest first.
	RecentCommands(ctx context.Context, n int) ([]Entry, error)

	// GoalCounts returns the number of audited commands per goal tag.
	GoalCounts(ctx context.Context) (map[string]int, error)

	// Close releases the underlying database.
	Close() error
}
