package types_test

import (
	"testing"

	"github.com/okian/rover/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMode(t *testing.T) {
	Convey("Given mode strings", t, func() {
		Convey("When the string matches a mode exactly", func() {
			mode, err := types.ParseMode("AUTOMATIC")

			Convey("Then it should parse", func() {
				So(err, ShouldBeNil)
				So(mode, ShouldEqual, types.ModeAutomatic)
			})
		})

		Convey("When the string differs in case or spacing", func() {
			Convey("Then parsing should still succeed", func() {
				for input, want := range map[string]types.Mode{
					"manual":     types.ModeManual,
					" Debug ":    types.ModeDebug,
					"automatic":  types.ModeAutomatic,
					"AUTOMATIC ": types.ModeAutomatic,
				} {
					mode, err := types.ParseMode(input)
					So(err, ShouldBeNil)
					So(mode, ShouldEqual, want)
				}
			})
		})

		Convey("When the string is unknown", func() {
			_, err := types.ParseMode("turbo")

			Convey("Then parsing should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the string is empty", func() {
			_, err := types.ParseMode("")

			Convey("Then parsing should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
