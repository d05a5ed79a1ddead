// Package engine is the navigation decision core: given one sensor
// observation and read access to the command history, it selects the active
// objective and produces one drive command.
//
// The engine is logically single-threaded and synchronous per decision: one
// observation in, one command out. It never mutates the history; the caller
// appends after successful dispatch. Absence of the target is not an error
// but a normal branch into the search strategy.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/geometry"
	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/internal/domain/search"
	"github.com/okian/rover/internal/domain/types"
	"github.com/okian/rover/pkg/logger"
)

// History is the engine's read-only view of the command log. All reads are
// keyed by car id: each vehicle carries its own decision memory.
type History interface {
	CountConsecutive(carID string, goal command.Goal) int
	Last(carID string) (command.Command, bool)
}

// Params bundles the decision thresholds and speeds. Distances are
// millimeters, angles whole degrees, speeds percent of maximum.
type Params struct {
	RequiredBalls int

	BallLabelSuffix string // appended to the car's target color
	HomeLabel       string

	BallSizeMm float64 // real-world ball diameter
	HomeSizeMm float64 // real-world base marker height

	// False-positive filter: ball detections below MinScore whose box top
	// edge sits above MaxTopY are discarded outright. Target objects never
	// appear suspended near the top of frame.
	MinScore float64
	MaxTopY  float64

	CaptureAngleDeg   int
	CaptureDistanceMm int
	SlowZoneMm        int
	OvershootMm       int
	PullbackMm        int
	ReleaseDistanceMm int

	FullSpeedPct     int
	HalfSpeedPct     int
	ApproachSpeedPct int

	// Back-away maneuver after releasing a ball at the base.
	ReleaseShortReverseMm  int
	ReleaseLongReverseMm   int
	ReleaseShortSpeedPct   int
	ReleaseLongSpeedPct    int
	ReleaseTurnDegrees     int
}

// DefaultParams returns the reference calibration.
func DefaultParams() Params {
	return Params{
		RequiredBalls:         1,
		BallLabelSuffix:       "_ball",
		HomeLabel:             "home_base",
		BallSizeMm:            65,
		HomeSizeMm:            420,
		MinScore:              0.5,
		MaxTopY:               0.2,
		CaptureAngleDeg:       10,
		CaptureDistanceMm:     70,
		SlowZoneMm:            250,
		OvershootMm:           30,
		PullbackMm:            250,
		ReleaseDistanceMm:     850,
		FullSpeedPct:          100,
		HalfSpeedPct:          50,
		ApproachSpeedPct:      5,
		ReleaseShortReverseMm: 100,
		ReleaseLongReverseMm:  1000,
		ReleaseShortSpeedPct:  50,
		ReleaseLongSpeedPct:   100,
		ReleaseTurnDegrees:    90,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams replaces the decision parameters.
func WithParams(p Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithRequiredBalls sets how many balls end the run.
func WithRequiredBalls(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.params.RequiredBalls = n
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine composes geometry, search, and capture/release logic into one
// decision per observation.
type Engine struct {
	cam    geometry.Camera
	search *search.Strategy
	params Params
	log    logger.Logger
}

// New creates a decision engine for the given camera and search strategy.
func New(cam geometry.Camera, strategy *search.Strategy, opts ...Option) *Engine {
	e := &Engine{
		cam:    cam,
		search: strategy,
		params: DefaultParams(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = logger.Get().Named("engine")
	}

	return e
}

// Decide produces the drive command for one observation. It fails only when
// the observation is structurally incomplete; "target not found" is handled
// as a first-class branch, never an error.
func (e *Engine) Decide(ctx context.Context, obs model.Observation, hist History) (command.Command, error) {
	if err := obs.Validate(); err != nil {
		return command.Command{}, fmt.Errorf("%w: %w", ErrMalformedObservation, err)
	}

	cmd := command.New(obs.CarID, types.ModeAutomatic, obs.Timestamp)

	switch e.objectiveFor(obs, hist) {
	case objectiveReturnToBase:
		e.returnToBase(ctx, obs, hist, &cmd)
	case objectiveSeekBall:
		e.seekBall(ctx, obs, hist, &cmd)
	default:
		// Terminal: no physical actions, no further sensor reads. The
		// caller's loop owns termination.
		cmd.Tag(command.GoalGameEnd)
		e.log.Info(ctx, "game end", logger.String("car", obs.CarID), logger.Int("balls", obs.BallsCarried))
		return cmd, nil
	}

	cmd.RequestSensor()
	return cmd, nil
}

type objective int

const (
	objectiveSeekBall objective = iota
	objectiveReturnToBase
	objectiveEndOfRun
)

// objectiveFor selects the active objective; first match wins. A home-bound
// last goal is a commitment: once home-seeking starts the engine must not
// oscillate back to ball-seeking mid-maneuver.
func (e *Engine) objectiveFor(obs model.Observation, hist History) objective {
	if last, ok := hist.Last(obs.CarID); ok && last.Goal.HomeBound() {
		return objectiveReturnToBase
	}
	if obs.BallsCarried < e.params.RequiredBalls {
		return objectiveSeekBall
	}
	return objectiveEndOfRun
}

// seekBall runs one cycle of the seek-and-capture objective.
func (e *Engine) seekBall(ctx context.Context, obs model.Observation, hist History, cmd *command.Command) {
	label := obs.TargetColor + e.params.BallLabelSuffix
	det, found := e.bestBall(obs.Detections, label)
	if !found {
		e.applySearch(cmd, search.TargetBall, hist)
		return
	}

	angle := e.cam.Angle(det.Box)
	dist := e.cam.Distance(det.Box, e.params.BallSizeMm)
	e.log.Debug(ctx, "ball sighted",
		logger.String("label", det.Label),
		logger.Float64("score", det.Score),
		logger.Int("angle", angle),
		logger.Int("distance", dist),
	)

	captured := abs(angle) <= e.params.CaptureAngleDeg && dist <= e.params.CaptureDistanceMm
	last, hasLast := hist.Last(obs.CarID)

	switch {
	case captured && hasLast && last.Goal == command.GoalCheckGrip:
		// The gripper closed last cycle and the ball is still in front of
		// the camera after the pull-back: grip verified.
		cmd.Tag(command.GoalGoToBase)
	case captured:
		// Close and pull back to confirm the ball is truly retained before
		// any further motion.
		cmd.Tag(command.GoalCheckGrip).
			CloseGripper().
			Speed(e.params.HalfSpeedPct).
			Move(-e.params.PullbackMm)
	case dist < e.params.SlowZoneMm:
		cmd.Tag(command.GoalGoToBall).
			Turn(angle).
			OpenGripper().
			Speed(e.params.ApproachSpeedPct).
			Move(dist + e.params.OvershootMm)
	case obs.ObstacleAhead:
		e.applySearch(cmd, search.TargetBall, hist)
	default:
		// Partial advance leaves room for re-evaluation next cycle instead
		// of committing to the full remaining distance in one move.
		cmd.Tag(command.GoalGoToBall).
			Turn(angle).
			Speed(e.params.FullSpeedPct).
			Move(dist - e.params.SlowZoneMm/2)
	}
}

// returnToBase runs one cycle of the return objective.
func (e *Engine) returnToBase(ctx context.Context, obs model.Observation, hist History, cmd *command.Command) {
	det, found := e.bestByLabel(obs.Detections, e.params.HomeLabel)
	if !found {
		e.applySearch(cmd, search.TargetHome, hist)
		return
	}

	angle := e.cam.Angle(det.Box)
	dist := e.cam.Distance(det.Box, e.params.HomeSizeMm)
	e.log.Debug(ctx, "base sighted", logger.Int("angle", angle), logger.Int("distance", dist))

	switch {
	case abs(angle) <= e.params.CaptureAngleDeg && dist <= e.params.ReleaseDistanceMm:
		// Arrived: drop the ball, back away at two speeds, turn aside, and
		// re-close the gripper so it cannot scoop stray balls in transit.
		cmd.Tag(command.GoalReleaseBall).
			AddBallCount(obs.BallsCarried + 1).
			OpenGripper().
			Speed(e.params.ReleaseShortSpeedPct).
			Move(-e.params.ReleaseShortReverseMm).
			Speed(e.params.ReleaseLongSpeedPct).
			Move(-e.params.ReleaseLongReverseMm).
			Turn(e.params.ReleaseTurnDegrees).
			CloseGripper()
	case obs.ObstacleAhead:
		e.applySearch(cmd, search.TargetHome, hist)
	default:
		cmd.Tag(command.GoalGoToBase).
			Turn(angle).
			Speed(e.params.FullSpeedPct).
			Move(dist - e.params.SlowZoneMm/2)
	}
}

// applySearch is the shared fallback transition into the search sub-state:
// both "target not visible" and "obstacle ahead" land here.
func (e *Engine) applySearch(cmd *command.Command, target search.Target, hist History) {
	seekGoal := command.GoalSeekBallTurn
	if target == search.TargetHome {
		seekGoal = command.GoalSeekHomeTurn
	}

	plan := e.search.Next(target, hist.CountConsecutive(cmd.CarID, seekGoal))
	cmd.Tag(plan.Goal).Speed(plan.SpeedPct)
	if plan.TurnDegrees != 0 {
		cmd.Turn(plan.TurnDegrees)
	}
	if plan.MoveMm != 0 {
		cmd.Move(plan.MoveMm)
	}
}

// bestBall finds the best matching ball detection: label-matching boxes
// surviving the false-positive filter, maximizing apparent size weighted by
// confidence. Ties keep the earliest-seen detection.
func (e *Engine) bestBall(detections []model.Detection, label string) (model.Detection, bool) {
	var best model.Detection
	bestWeight := -1.0
	for _, det := range detections {
		if det.Box.LargestSide() <= 0 {
			// A zero-size box carries no geometry to range against.
			continue
		}
		if strings.HasSuffix(det.Label, e.params.BallLabelSuffix) &&
			det.Score < e.params.MinScore && det.Box.Y < e.params.MaxTopY {
			// Low confidence near the top of frame: target objects never
			// appear suspended there.
			continue
		}
		if det.Label != label {
			continue
		}
		if weight := det.Box.LargestSide() * det.Score; weight > bestWeight {
			best = det
			bestWeight = weight
		}
	}
	return best, bestWeight >= 0
}

// bestByLabel finds the largest, most confident detection with the label.
func (e *Engine) bestByLabel(detections []model.Detection, label string) (model.Detection, bool) {
	var best model.Detection
	bestWeight := -1.0
	for _, det := range detections {
		if det.Label != label || det.Box.LargestSide() <= 0 {
			continue
		}
		if weight := det.Box.LargestSide() * det.Score; weight > bestWeight {
			best = det
			bestWeight = weight
		}
	}
	return best, bestWeight >= 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
