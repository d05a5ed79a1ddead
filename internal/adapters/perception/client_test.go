package perception_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/rover/internal/adapters/perception"
	"github.com/okian/rover/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func testObservation() model.Observation {
	return model.Observation{
		CarID:       "car-1",
		Timestamp:   1700000000000,
		ImageRef:    "frame_42.jpg",
		TargetColor: "blue",
	}
}

func TestClientDetect(t *testing.T) {
	Convey("Given a detection service", t, func() {
		ctx := context.Background()

		Convey("When the service returns detections", func() {
			var gotPath string
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"detections": []model.Detection{{
						Label: "blue_ball",
						Score: 0.91,
						Box:   model.Box{X: 0.4, Y: 0.5, W: 0.1, H: 0.1},
					}},
				})
			}))
			defer srv.Close()

			client := perception.NewClient(srv.URL)
			detections, err := client.Detect(ctx, testObservation())

			Convey("Then it should decode the detection list", func() {
				So(err, ShouldBeNil)
				So(detections, ShouldHaveLength, 1)
				So(detections[0].Label, ShouldEqual, "blue_ball")
				So(detections[0].Score, ShouldAlmostEqual, 0.91)
			})

			Convey("Then the request should carry the image reference", func() {
				So(gotPath, ShouldEqual, "/detect")
				So(gotBody["car_id"], ShouldEqual, "car-1")
				So(gotBody["image_ref"], ShouldEqual, "frame_42.jpg")
			})
		})

		Convey("When the service returns an empty list", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"detections": []model.Detection{}})
			}))
			defer srv.Close()

			client := perception.NewClient(srv.URL)
			detections, err := client.Detect(ctx, testObservation())

			Convey("Then an empty result is not an error", func() {
				So(err, ShouldBeNil)
				So(detections, ShouldBeEmpty)
			})
		})

		Convey("When the service returns a server error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := perception.NewClient(srv.URL)
			_, err := client.Detect(ctx, testObservation())

			Convey("Then the failure should surface as unavailable", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, perception.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the service is unreachable", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
			srv.Close()

			client := perception.NewClient(srv.URL)
			_, err := client.Detect(ctx, testObservation())

			Convey("Then the transport error should surface as unavailable", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, perception.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the response body is not JSON", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			}))
			defer srv.Close()

			client := perception.NewClient(srv.URL)
			_, err := client.Detect(ctx, testObservation())

			Convey("Then the decode failure should surface as unavailable", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, perception.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}
