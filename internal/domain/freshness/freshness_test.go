package freshness_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/rover/internal/domain/freshness"
	"github.com/okian/rover/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func obsAt(carID string, ts int64) model.Observation {
	return model.Observation{
		CarID:       carID,
		Timestamp:   ts,
		ImageRef:    "frame.jpg",
		TargetColor: "blue",
	}
}

func TestGate(t *testing.T) {
	Convey("Given a gate with a fixed clock and a 60s window", t, func() {
		now := time.UnixMilli(1700000000000)
		gate := freshness.NewGate(
			freshness.WithWindow(60*time.Second),
			freshness.WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()

		Convey("When observations arrive in order", func() {
			err1 := gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-2000))
			err2 := gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-1000))

			Convey("Then both should be admitted", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
			})
		})

		Convey("When an observation repeats a timestamp", func() {
			So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-1000)), ShouldBeNil)
			err := gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-1000))

			Convey("Then it should be rejected as out of order", func() {
				So(err, ShouldEqual, freshness.ErrOutOfOrder)
			})
		})

		Convey("When an observation arrives out of order", func() {
			So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-1000)), ShouldBeNil)
			err := gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-5000))

			Convey("Then it should be rejected as out of order", func() {
				So(err, ShouldEqual, freshness.ErrOutOfOrder)
			})
		})

		Convey("When an observation is older than the window", func() {
			err := gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-61_000))

			Convey("Then it should be rejected as too old", func() {
				So(err, ShouldEqual, freshness.ErrTooOld)
			})
		})

		Convey("When an observation sits exactly at the window edge", func() {
			err := gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-60_000))

			Convey("Then it should still be admitted", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When a rejection occurs", func() {
			So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-1000)), ShouldBeNil)
			So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-5000)), ShouldEqual, freshness.ErrOutOfOrder)

			Convey("Then the rejected timestamp should not advance the watermark", func() {
				So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-500)), ShouldBeNil)
			})
		})

		Convey("When two cars interleave", func() {
			So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-1000)), ShouldBeNil)
			So(gate.Admit(ctx, obsAt("car-2", now.UnixMilli()-3000)), ShouldBeNil)

			Convey("Then each car should track its own ordering", func() {
				So(gate.Admit(ctx, obsAt("car-2", now.UnixMilli()-2000)), ShouldBeNil)
				So(gate.Admit(ctx, obsAt("car-1", now.UnixMilli()-2000)), ShouldEqual, freshness.ErrOutOfOrder)
			})
		})
	})
}
