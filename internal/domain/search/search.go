// Package search decides what to do when the target is not visible: sweep the
// camera by rotating in place, or relocate blindly after repeated failures.
package search

import (
	"math/rand"

	"github.com/okian/rover/internal/domain/command"
)

// Default strategy constants.
const (
	defaultTurnThreshold = 5 // failed sweeps before relocating

	defaultBallTurnDegrees = 67
	defaultHomeTurnDegrees = 60
	defaultTurnSpeedPct    = 30

	ballMoveMinMm     = 100
	ballMoveSpanMm    = 600 // draw from [100,700)
	homeMoveMinMm     = 200
	homeMoveSpanMm    = 700 // draw from [200,900)
	ballReverseChance = 0.25

	defaultRandomSeed = 42
)

// Target selects which seek goal pair the strategy plans for.
type Target int

// Seek targets.
const (
	TargetBall Target = iota
	TargetHome
)

// Plan is one search decision. Goal and the action type (turn vs. move) are
// fully determined by the consecutive-turn count; only the relocation
// magnitude is randomized.
type Plan struct {
	Goal        command.Goal
	TurnDegrees int
	MoveMm      int
	SpeedPct    int
}

// Option applies a configuration option to the Strategy.
type Option func(*Strategy)

// WithRand sets the random source. Tests inject a seeded source to assert
// draw boundaries and the reversal probability.
func WithRand(rng *rand.Rand) Option {
	return func(s *Strategy) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithTurnThreshold sets the number of failed sweeps before relocation.
func WithTurnThreshold(n int) Option {
	return func(s *Strategy) {
		if n > 0 {
			s.turnThreshold = n
		}
	}
}

// WithTurnDegrees sets the per-target sweep angles.
func WithTurnDegrees(ball, home int) Option {
	return func(s *Strategy) {
		if ball > 0 {
			s.ballTurnDegrees = ball
		}
		if home > 0 {
			s.homeTurnDegrees = home
		}
	}
}

// WithTurnSpeed sets the reduced speed used while searching.
func WithTurnSpeed(percent int) Option {
	return func(s *Strategy) {
		if percent > 0 {
			s.turnSpeedPct = percent
		}
	}
}

// Strategy derives its state purely from the consecutive count of the active
// seek goal; there is no stored counter.
type Strategy struct {
	rng             *rand.Rand
	turnThreshold   int
	ballTurnDegrees int
	homeTurnDegrees int
	turnSpeedPct    int
}

// New creates a search strategy with configuration options.
func New(opts ...Option) *Strategy {
	s := &Strategy{
		rng:             rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // non-cryptographic relocation draws
		turnThreshold:   defaultTurnThreshold,
		ballTurnDegrees: defaultBallTurnDegrees,
		homeTurnDegrees: defaultHomeTurnDegrees,
		turnSpeedPct:    defaultTurnSpeedPct,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Next plans the search action for the given target and the consecutive-turn
// count of its seek goal. Below the threshold it sweeps in place; once the
// threshold is reached it relocates by a pseudo-random signed distance. Pure
// rotation cheaply re-samples the camera view without committing to a
// position change.
func (s *Strategy) Next(target Target, consecutiveTurns int) Plan {
	if consecutiveTurns < s.turnThreshold {
		return s.sweep(target)
	}
	return s.relocate(target)
}

func (s *Strategy) sweep(target Target) Plan {
	if target == TargetHome {
		return Plan{
			Goal:        command.GoalSeekHomeTurn,
			TurnDegrees: s.homeTurnDegrees,
			SpeedPct:    s.turnSpeedPct,
		}
	}
	return Plan{
		Goal:        command.GoalSeekBallTurn,
		TurnDegrees: s.ballTurnDegrees,
		SpeedPct:    s.turnSpeedPct,
	}
}

func (s *Strategy) relocate(target Target) Plan {
	if target == TargetHome {
		// Home relocation never reverses: the gripper carries a ball.
		return Plan{
			Goal:     command.GoalSeekHomeMove,
			MoveMm:   homeMoveMinMm + s.rng.Intn(homeMoveSpanMm),
			SpeedPct: s.turnSpeedPct,
		}
	}

	distance := ballMoveMinMm + s.rng.Intn(ballMoveSpanMm)
	if s.rng.Float64() < ballReverseChance {
		distance = -distance
	}
	return Plan{
		Goal:     command.GoalSeekBallMove,
		MoveMm:   distance,
		SpeedPct: s.turnSpeedPct,
	}
}
