package engine_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"testing"

	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/engine"
	"github.com/okian/rover/internal/domain/geometry"
	"github.com/okian/rover/internal/domain/history"
	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/internal/domain/search"
	"github.com/okian/rover/internal/domain/types"
	"github.com/okian/rover/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func testCamera() geometry.Camera {
	return geometry.Camera{
		HorizontalFOVDegrees: 62.2,
		CalibrationMult:      0.75,
		FocalLengthMm:        3.6,
		SensorHeightMm:       2.74,
		MinDistanceMm:        110,
	}
}

func newEngine(opts ...engine.Option) *engine.Engine {
	strategy := search.New(search.WithRand(rand.New(rand.NewSource(7))))
	return engine.New(testCamera(), strategy, opts...)
}

// Box sides chosen against the test camera's pinhole model for a 65mm ball:
//   side 0.50 -> 20mm  (near-field floor, capture range)
//   side 0.25 -> 197mm (slow zone)
//   side 0.10 -> 744mm (far)
// and for the 420mm base marker:
//   side 0.60 -> 810mm (inside release range)
//   side 0.30 -> 1729mm (far)
func detection(label string, cx, side, score float64) model.Detection {
	return model.Detection{
		Label: label,
		Score: score,
		Box:   model.Box{X: cx - side/2, Y: 0.4, W: side, H: side},
	}
}

func baseObservation(dets ...model.Detection) model.Observation {
	return model.Observation{
		CarID:       "car-1",
		Timestamp:   1700000000000,
		ImageRef:    "frame.jpg",
		TargetColor: "blue",
		Detections:  dets,
	}
}

func actionKinds(cmd command.Command) []command.ActionKind {
	kinds := make([]command.ActionKind, len(cmd.Actions))
	for i, a := range cmd.Actions {
		kinds[i] = a.Kind
	}
	return kinds
}

func actionValue(cmd command.Command, kind command.ActionKind) (int, bool) {
	for _, a := range cmd.Actions {
		if a.Kind == kind {
			return a.Value, true
		}
	}
	return 0, false
}

func TestDecideValidation(t *testing.T) {
	Convey("Given a decision engine", t, func() {
		e := newEngine()
		hist := history.NewLog()

		Convey("When the observation misses a required field", func() {
			obs := baseObservation()
			obs.CarID = ""
			_, err := e.Decide(context.Background(), obs, hist)

			Convey("Then it should fail as a malformed observation", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, engine.ErrMalformedObservation), ShouldBeTrue)
				So(errors.Is(err, model.ErrMissingCarID), ShouldBeTrue)
			})
		})

		Convey("When the observation is valid", func() {
			cmd, err := e.Decide(context.Background(), baseObservation(), hist)

			Convey("Then it should produce an automatic command for the car", func() {
				So(err, ShouldBeNil)
				So(cmd.CarID, ShouldEqual, "car-1")
				So(cmd.Mode, ShouldEqual, types.ModeAutomatic)
				So(cmd.CorrelationID, ShouldEqual, 1700000000000)
			})
		})
	})
}

func TestDecideGameEnd(t *testing.T) {
	Convey("Given an engine requiring one ball", t, func() {
		e := newEngine()

		Convey("When the car carries the required ball and is not home-bound", func() {
			obs := baseObservation()
			obs.BallsCarried = 1
			cmd, err := e.Decide(context.Background(), obs, history.NewLog())

			Convey("Then the run should end with no physical actions", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGameEnd)
				So(cmd.Actions, ShouldBeEmpty)
			})
		})

		Convey("When more balls are required", func() {
			e2 := newEngine(engine.WithRequiredBalls(3))
			obs := baseObservation()
			obs.BallsCarried = 1
			cmd, err := e2.Decide(context.Background(), obs, history.NewLog())

			Convey("Then the engine should keep seeking", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldNotEqual, command.GoalGameEnd)
			})
		})
	})
}

func TestDecideSeekBall(t *testing.T) {
	Convey("Given an engine seeking a blue ball", t, func() {
		e := newEngine()
		ctx := context.Background()

		Convey("When no detections are present", func() {
			cmd, err := e.Decide(ctx, baseObservation(), history.NewLog())

			Convey("Then it should sweep for the ball and request a reading", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallTurn)

				turn, ok := actionValue(cmd, command.ActionTurn)
				So(ok, ShouldBeTrue)
				So(turn, ShouldEqual, 67)

				speed, _ := actionValue(cmd, command.ActionSpeed)
				So(speed, ShouldEqual, 30)

				kinds := actionKinds(cmd)
				So(kinds[len(kinds)-1], ShouldEqual, command.ActionSensorRequest)
			})
		})

		Convey("When five sweeps have already failed", func() {
			hist := history.NewLog()
			for i := 0; i < 5; i++ {
				c := command.New("car-1", types.ModeAutomatic, int64(i))
				c.Tag(command.GoalSeekBallTurn)
				hist.Append(c)
			}
			cmd, err := e.Decide(ctx, baseObservation(), hist)

			Convey("Then the engine should relocate instead of sweeping", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallMove)

				move, ok := actionValue(cmd, command.ActionMove)
				So(ok, ShouldBeTrue)
				So(move, ShouldNotEqual, 0)
			})
		})

		Convey("When the ball is far away and off-center", func() {
			// side 0.1 at cx 0.7: distance 744mm, angle 9
			obs := baseObservation(detection("blue_ball", 0.7, 0.1, 0.9))
			cmd, err := e.Decide(ctx, obs, history.NewLog())

			Convey("Then it should advance partway at full speed", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGoToBall)

				turn, _ := actionValue(cmd, command.ActionTurn)
				So(turn, ShouldEqual, 9)

				speed, _ := actionValue(cmd, command.ActionSpeed)
				So(speed, ShouldEqual, 100)

				move, _ := actionValue(cmd, command.ActionMove)
				So(move, ShouldEqual, 744-125)
			})
		})

		Convey("When the ball is inside the slow zone", func() {
			// side 0.25: distance 197mm
			obs := baseObservation(detection("blue_ball", 0.5, 0.25, 0.9))
			cmd, err := e.Decide(ctx, obs, history.NewLog())

			Convey("Then it should creep in with the gripper open and overshoot", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGoToBall)
				So(actionKinds(cmd), ShouldContain, command.ActionGripperOpen)

				speed, _ := actionValue(cmd, command.ActionSpeed)
				So(speed, ShouldEqual, 5)

				move, _ := actionValue(cmd, command.ActionMove)
				So(move, ShouldEqual, 197+30)
			})
		})

		Convey("When the ball sits in capture range", func() {
			// side 0.5: distance 20mm, centered
			obs := baseObservation(detection("blue_ball", 0.5, 0.5, 0.9))

			Convey("And the last command was not a grip check", func() {
				cmd, err := e.Decide(ctx, obs, history.NewLog())

				Convey("Then it should close the gripper and pull back", func() {
					So(err, ShouldBeNil)
					So(cmd.Goal, ShouldEqual, command.GoalCheckGrip)
					So(actionKinds(cmd), ShouldContain, command.ActionGripperClose)

					speed, _ := actionValue(cmd, command.ActionSpeed)
					So(speed, ShouldEqual, 50)

					move, _ := actionValue(cmd, command.ActionMove)
					So(move, ShouldEqual, -250)
				})
			})

			Convey("And the last command was a grip check", func() {
				hist := history.NewLog()
				c := command.New("car-1", types.ModeAutomatic, 1)
				c.Tag(command.GoalCheckGrip)
				hist.Append(c)

				cmd, err := e.Decide(ctx, obs, hist)

				Convey("Then the grip is verified and the car heads home", func() {
					So(err, ShouldBeNil)
					So(cmd.Goal, ShouldEqual, command.GoalGoToBase)

					kinds := actionKinds(cmd)
					So(kinds, ShouldHaveLength, 1)
					So(kinds[0], ShouldEqual, command.ActionSensorRequest)
				})
			})
		})

		Convey("When an obstacle blocks a distant ball", func() {
			obs := baseObservation(detection("blue_ball", 0.5, 0.1, 0.9))
			obs.ObstacleAhead = true
			cmd, err := e.Decide(ctx, obs, history.NewLog())

			Convey("Then the engine should fall back to searching", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallTurn)
			})
		})

		Convey("When an obstacle appears inside the slow zone", func() {
			obs := baseObservation(detection("blue_ball", 0.5, 0.25, 0.9))
			obs.ObstacleAhead = true
			cmd, err := e.Decide(ctx, obs, history.NewLog())

			Convey("Then the close-range approach should still win", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGoToBall)
			})
		})

		Convey("When the only match is a low-score box near the top of frame", func() {
			det := detection("blue_ball", 0.5, 0.1, 0.3)
			det.Box.Y = 0.1
			cmd, err := e.Decide(ctx, baseObservation(det), history.NewLog())

			Convey("Then the false positive should be discarded", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallTurn)
			})
		})

		Convey("When a low-score box sits low in the frame", func() {
			det := detection("blue_ball", 0.5, 0.25, 0.3)
			cmd, err := e.Decide(ctx, baseObservation(det), history.NewLog())

			Convey("Then it should still be considered", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGoToBall)
			})
		})

		Convey("When only wrong-colored balls are visible", func() {
			obs := baseObservation(
				detection("red_ball", 0.5, 0.3, 0.9),
				detection("green_ball", 0.4, 0.2, 0.8),
			)
			cmd, err := e.Decide(ctx, obs, history.NewLog())

			Convey("Then the engine should search", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallTurn)
			})
		})

		Convey("When the only match is a zero-size box", func() {
			det := detection("blue_ball", 0.5, 0, 0.9)
			cmd, err := e.Decide(ctx, baseObservation(det), history.NewLog())

			Convey("Then it carries no geometry and the engine searches", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallTurn)
				So(actionKinds(cmd), ShouldNotContain, command.ActionGripperClose)
			})
		})

		Convey("When several matching balls are visible", func() {
			obs := baseObservation(
				detection("blue_ball", 0.8, 0.1, 0.9),
				detection("blue_ball", 0.5, 0.25, 0.9),
			)
			cmd, err := e.Decide(ctx, obs, history.NewLog())

			Convey("Then the larger, closer ball should be chosen", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGoToBall)

				move, _ := actionValue(cmd, command.ActionMove)
				So(move, ShouldEqual, 197+30)
			})
		})
	})
}

func TestDecideReturnToBase(t *testing.T) {
	Convey("Given an engine with a home-bound history", t, func() {
		e := newEngine()
		ctx := context.Background()

		homeBound := func() *history.Log {
			hist := history.NewLog()
			c := command.New("car-1", types.ModeAutomatic, 1)
			c.Tag(command.GoalGoToBase)
			hist.Append(c)
			return hist
		}

		Convey("When the base is not visible", func() {
			cmd, err := e.Decide(ctx, baseObservation(), homeBound())

			Convey("Then it should sweep for the base", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekHomeTurn)

				turn, _ := actionValue(cmd, command.ActionTurn)
				So(turn, ShouldEqual, 60)
			})
		})

		Convey("When five home sweeps have already failed", func() {
			hist := history.NewLog()
			for i := 0; i < 5; i++ {
				c := command.New("car-1", types.ModeAutomatic, int64(i))
				c.Tag(command.GoalSeekHomeTurn)
				hist.Append(c)
			}
			cmd, err := e.Decide(ctx, baseObservation(), hist)

			Convey("Then it should relocate forward only", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekHomeMove)

				move, ok := actionValue(cmd, command.ActionMove)
				So(ok, ShouldBeTrue)
				So(move, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the base is far away", func() {
			// side 0.3 for the 420mm marker: distance 1729mm
			obs := baseObservation(detection("home_base", 0.7, 0.3, 0.9))
			cmd, err := e.Decide(ctx, obs, homeBound())

			Convey("Then it should advance toward the base at full speed", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalGoToBase)

				turn, _ := actionValue(cmd, command.ActionTurn)
				So(turn, ShouldEqual, 9)

				speed, _ := actionValue(cmd, command.ActionSpeed)
				So(speed, ShouldEqual, 100)

				move, _ := actionValue(cmd, command.ActionMove)
				So(move, ShouldEqual, 1729-125)
			})
		})

		Convey("When the base is centered within release range", func() {
			// side 0.6 for the 420mm marker: distance 810mm
			obs := baseObservation(detection("home_base", 0.5, 0.6, 0.9))
			obs.BallsCarried = 0
			cmd, err := e.Decide(ctx, obs, homeBound())

			Convey("Then it should release, back away, and turn aside", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalReleaseBall)
				So(cmd.BallCount, ShouldEqual, 1)

				kinds := actionKinds(cmd)
				So(kinds, ShouldResemble, []command.ActionKind{
					command.ActionGripperOpen,
					command.ActionSpeed,
					command.ActionMove,
					command.ActionSpeed,
					command.ActionMove,
					command.ActionTurn,
					command.ActionGripperClose,
					command.ActionSensorRequest,
				})

				So(cmd.Actions[2].Value, ShouldEqual, -100)
				So(cmd.Actions[4].Value, ShouldEqual, -1000)
				So(cmd.Actions[5].Value, ShouldEqual, 90)
			})

			Convey("Then the next cycle reverts to ball-seeking", func() {
				hist := homeBound()
				hist.Append(*cmd.Tag(command.GoalReleaseBall))

				next, nerr := e.Decide(ctx, baseObservation(), hist)
				So(nerr, ShouldBeNil)
				So(next.Goal, ShouldEqual, command.GoalSeekBallTurn)
			})
		})

		Convey("When an obstacle blocks the way home", func() {
			obs := baseObservation(detection("home_base", 0.5, 0.3, 0.9))
			obs.ObstacleAhead = true
			cmd, err := e.Decide(ctx, obs, homeBound())

			Convey("Then the engine should search for a way around", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekHomeTurn)
			})
		})

		Convey("When the required balls are already carried mid-return", func() {
			obs := baseObservation()
			obs.BallsCarried = 1
			cmd, err := e.Decide(ctx, obs, homeBound())

			Convey("Then the home commitment should outrank game end", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekHomeTurn)
			})
		})
	})
}

func TestDecideMultiCarIsolation(t *testing.T) {
	Convey("Given two cars sharing one command log", t, func() {
		e := newEngine()
		ctx := context.Background()

		hist := history.NewLog()
		c := command.New("car-b", types.ModeAutomatic, 1)
		c.Tag(command.GoalGoToBase)
		hist.Append(c)

		Convey("When the other car decides with no balls and no detections", func() {
			obs := baseObservation()
			obs.CarID = "car-a"
			cmd, err := e.Decide(ctx, obs, hist)

			Convey("Then it should seek a ball, untouched by the first car's commitment", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallTurn)
			})
		})

		Convey("When the committed car decides", func() {
			obs := baseObservation()
			obs.CarID = "car-b"
			cmd, err := e.Decide(ctx, obs, hist)

			Convey("Then its own home commitment should hold", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekHomeTurn)
			})
		})

		Convey("When both cars rack up interleaved sweeps", func() {
			for i := 0; i < 5; i++ {
				a := command.New("car-a", types.ModeAutomatic, int64(i))
				a.Tag(command.GoalSeekBallTurn)
				hist.Append(a)

				b := command.New("car-b", types.ModeAutomatic, int64(i))
				b.Tag(command.GoalSeekHomeTurn)
				hist.Append(b)
			}

			obs := baseObservation()
			obs.CarID = "car-a"
			cmd, err := e.Decide(ctx, obs, hist)

			Convey("Then each car's consecutive count should survive the interleaving", func() {
				So(err, ShouldBeNil)
				So(cmd.Goal, ShouldEqual, command.GoalSeekBallMove)
			})
		})
	})
}
