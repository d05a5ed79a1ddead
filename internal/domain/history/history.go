// Package history holds the append-only, time-ordered log of issued drive
// commands, keyed by car. The rolling consecutive-goal count it exposes is
// the engine's only persistent memory of past decisions, and that memory is
// strictly per car: one vehicle's commitments never leak into another's.
package history

import (
	"sync"

	"github.com/okian/rover/internal/domain/command"
)

// Log is an append-only command log partitioned by car id. The engine only
// reads it; exactly one writer appends after each dispatched command.
type Log struct {
	mu      sync.RWMutex
	entries map[string][]command.Command
	total   int
	latest  command.Command
}

// NewLog creates an empty command log.
func NewLog() *Log {
	return &Log{entries: make(map[string][]command.Command)}
}

// Append adds a finalized command to the end of its car's log.
func (l *Log) Append(cmd command.Command) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[cmd.CarID] = append(l.entries[cmd.CarID], cmd)
	l.total++
	l.latest = cmd
}

// CountConsecutive counts, scanning the car's log from the newest entry
// backward, how many entries carry the given goal tag, stopping at the first
// mismatch.
func (l *Log) CountConsecutive(carID string, goal command.Goal) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.entries[carID]
	count := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Goal != goal {
			break
		}
		count++
	}
	return count
}

// Last returns the car's most recently appended command, if any.
func (l *Log) Last(carID string) (command.Command, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.entries[carID]
	if len(entries) == 0 {
		return command.Command{}, false
	}
	return entries[len(entries)-1], true
}

// Latest returns the most recently appended command across all cars, if any.
// It exists for stats snapshots; decisions always read per car.
func (l *Log) Latest() (command.Command, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest, l.total > 0
}

// Len returns the total number of commands across all cars.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
