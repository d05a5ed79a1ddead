package testtelemetry

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"
)

// verifyResults checks the audited commands and the stats snapshot against
// what the submitted telemetry should have produced.
func verifyResults(_ context.Context, config *Config, commands []CommandEntry, serviceStats map[string]interface{}, stats *Stats) error {
	log.Println("verifying results...")

	if mode, ok := serviceStats["mode"].(string); ok && mode != "AUTOMATIC" {
		log.Printf("warning: service mode is %s; commands may not reflect submitted telemetry", mode)
	}

	if len(commands) == 0 {
		if stats.ObsAccepted > 0 {
			log.Println("warning: no audited commands despite accepted observations (audit store may be disabled)")
		}
		log.Println("result verification completed")
		return nil
	}

	if err := verifyCommandOrdering(commands); err != nil {
		return fmt.Errorf("command ordering check failed: %w", err)
	}
	log.Println("command ordering verified")

	displayGoalDistribution(commands, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyCommandOrdering checks that audited commands come back newest first
// and that ball counts never decrease within a car's stream.
func verifyCommandOrdering(commands []CommandEntry) error {
	var prev time.Time
	for i, entry := range commands {
		ts, err := time.Parse(time.RFC3339Nano, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("entry %d has unparseable created_at %q: %w", i, entry.CreatedAt, err)
		}
		if i > 0 && ts.After(prev) {
			return fmt.Errorf("entry %d (%s) is newer than entry %d", i, entry.CreatedAt, i-1)
		}
		prev = ts
	}

	// Ball counts only grow: newest-first means each car's counts must be
	// non-increasing as we scan down.
	lastCount := make(map[string]int)
	for i, entry := range commands {
		if last, ok := lastCount[entry.CarID]; ok && entry.BallCount > last {
			return fmt.Errorf("entry %d: ball count for %s increased going backwards in time", i, entry.CarID)
		}
		lastCount[entry.CarID] = entry.BallCount
	}

	return nil
}

// displayGoalDistribution shows how often each goal was commanded.
func displayGoalDistribution(commands []CommandEntry, verbose bool) {
	counts := make(map[string]int)
	for _, entry := range commands {
		counts[entry.Goal]++
	}

	goals := make([]string, 0, len(counts))
	for goal := range counts {
		goals = append(goals, goal)
	}
	sort.Slice(goals, func(i, j int) bool {
		return counts[goals[i]] > counts[goals[j]]
	})

	log.Printf("goal distribution over %d commands:", len(commands))
	for _, goal := range goals {
		log.Printf("   %-16s %d", goal, counts[goal])
	}

	if verbose {
		cars := make(map[string]int)
		for _, entry := range commands {
			cars[entry.CarID]++
		}
		log.Printf("commands per car:")
		for carID, n := range cars {
			log.Printf("   %s: %d", carID, n)
		}
	}
}
