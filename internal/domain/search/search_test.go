package search_test

import (
	"math/rand"
	"testing"

	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/search"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStrategySweep(t *testing.T) {
	Convey("Given a default search strategy", t, func() {
		s := search.New()

		Convey("When seeking a ball below the turn threshold", func() {
			Convey("Then every count below the threshold should sweep in place", func() {
				for count := 0; count < 5; count++ {
					plan := s.Next(search.TargetBall, count)
					So(plan.Goal, ShouldEqual, command.GoalSeekBallTurn)
					So(plan.TurnDegrees, ShouldEqual, 67)
					So(plan.MoveMm, ShouldEqual, 0)
					So(plan.SpeedPct, ShouldEqual, 30)
				}
			})
		})

		Convey("When seeking the base below the turn threshold", func() {
			plan := s.Next(search.TargetHome, 0)

			Convey("Then the home sweep angle should apply", func() {
				So(plan.Goal, ShouldEqual, command.GoalSeekHomeTurn)
				So(plan.TurnDegrees, ShouldEqual, 60)
				So(plan.MoveMm, ShouldEqual, 0)
				So(plan.SpeedPct, ShouldEqual, 30)
			})
		})

		Convey("When a custom turn configuration is applied", func() {
			custom := search.New(
				search.WithTurnThreshold(2),
				search.WithTurnDegrees(45, 30),
				search.WithTurnSpeed(50),
			)

			Convey("Then sweeps should use the configured values", func() {
				plan := custom.Next(search.TargetBall, 1)
				So(plan.TurnDegrees, ShouldEqual, 45)
				So(plan.SpeedPct, ShouldEqual, 50)
			})

			Convey("Then relocation should start at the configured threshold", func() {
				plan := custom.Next(search.TargetBall, 2)
				So(plan.Goal, ShouldEqual, command.GoalSeekBallMove)
			})
		})
	})
}

func TestStrategyRelocate(t *testing.T) {
	Convey("Given a seeded search strategy at the turn threshold", t, func() {
		s := search.New(search.WithRand(rand.New(rand.NewSource(1))))

		Convey("When relocating toward a ball repeatedly", func() {
			reversed := 0
			for i := 0; i < 1000; i++ {
				plan := s.Next(search.TargetBall, 5)
				So(plan.Goal, ShouldEqual, command.GoalSeekBallMove)
				So(plan.TurnDegrees, ShouldEqual, 0)
				So(plan.SpeedPct, ShouldEqual, 30)

				mag := plan.MoveMm
				if mag < 0 {
					reversed++
					mag = -mag
				}
				So(mag, ShouldBeGreaterThanOrEqualTo, 100)
				So(mag, ShouldBeLessThan, 700)
			}

			Convey("Then roughly a quarter of the draws should reverse", func() {
				So(reversed, ShouldBeGreaterThan, 150)
				So(reversed, ShouldBeLessThan, 350)
			})
		})

		Convey("When relocating toward the base repeatedly", func() {
			for i := 0; i < 1000; i++ {
				plan := s.Next(search.TargetHome, 7)
				So(plan.Goal, ShouldEqual, command.GoalSeekHomeMove)
				So(plan.MoveMm, ShouldBeGreaterThanOrEqualTo, 200)
				So(plan.MoveMm, ShouldBeLessThan, 900)
			}
		})

		Convey("When the count sits exactly at the threshold", func() {
			plan := s.Next(search.TargetBall, 5)

			Convey("Then the strategy should relocate, not sweep", func() {
				So(plan.Goal, ShouldEqual, command.GoalSeekBallMove)
			})
		})

		Convey("When the count exceeds the threshold", func() {
			plan := s.Next(search.TargetHome, 42)

			Convey("Then the strategy should keep relocating", func() {
				So(plan.Goal, ShouldEqual, command.GoalSeekHomeMove)
			})
		})
	})
}
