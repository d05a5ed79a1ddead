package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rover/internal/adapters/dispatch"
	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/history"
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

// flakyPublisher fails the first n publishes, then succeeds.
type flakyPublisher struct {
	failures int32
	calls    int32
}

func (p *flakyPublisher) Publish(_ context.Context, _ command.Command) error {
	n := atomic.AddInt32(&p.calls, 1)
	if n <= atomic.LoadInt32(&p.failures) {
		return errors.New("transport down")
	}
	return nil
}

// recordingAudit captures saved commands and can be made to fail.
type recordingAudit struct {
	saved []command.Command
	err   error
}

func (a *recordingAudit) SaveCommand(_ context.Context, cmd command.Command) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, cmd)
	return nil
}

func testCommand() command.Command {
	cmd := command.New("car-1", types.ModeAutomatic, 42)
	cmd.Tag(command.GoalGoToBall).Turn(5).Speed(100).Move(300)
	return cmd
}

func TestDispatcher(t *testing.T) {
	Convey("Given a dispatcher over a recording publisher", t, func() {
		ctx := context.Background()

		Convey("When a command publishes on the first attempt", func() {
			rec := dispatch.NewRecorder()
			hist := history.NewLog()
			d := dispatch.New(rec, hist)

			err := d.Dispatch(ctx, testCommand())

			Convey("Then it should be published and appended to history", func() {
				So(err, ShouldBeNil)
				So(rec.Commands(), ShouldHaveLength, 1)
				So(hist.Len(), ShouldEqual, 1)

				last, ok := hist.Last("car-1")
				So(ok, ShouldBeTrue)
				So(last.Goal, ShouldEqual, command.GoalGoToBall)
			})
		})

		Convey("When the transport fails once before recovering", func() {
			pub := &flakyPublisher{failures: 1}
			hist := history.NewLog()
			d := dispatch.New(pub, hist, dispatch.WithRetryBackoff(time.Millisecond))

			err := d.Dispatch(ctx, testCommand())

			Convey("Then the retry should succeed and history should grow", func() {
				So(err, ShouldBeNil)
				So(atomic.LoadInt32(&pub.calls), ShouldEqual, 2)
				So(hist.Len(), ShouldEqual, 1)
			})
		})

		Convey("When every attempt fails", func() {
			pub := &flakyPublisher{failures: 100}
			hist := history.NewLog()
			d := dispatch.New(pub, hist,
				dispatch.WithMaxAttempts(3),
				dispatch.WithRetryBackoff(time.Millisecond),
			)

			err := d.Dispatch(ctx, testCommand())

			Convey("Then the command should be dropped without touching history", func() {
				So(err, ShouldNotBeNil)
				So(atomic.LoadInt32(&pub.calls), ShouldEqual, 3)
				So(hist.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the context is cancelled between attempts", func() {
			pub := &flakyPublisher{failures: 100}
			cancelCtx, cancel := context.WithCancel(ctx)
			cancel()
			d := dispatch.New(pub, history.NewLog(),
				dispatch.WithRetryBackoff(time.Hour),
			)

			err := d.Dispatch(cancelCtx, testCommand())

			Convey("Then the dispatch should stop early", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(atomic.LoadInt32(&pub.calls), ShouldEqual, 1)
			})
		})

		Convey("When an audit store is attached", func() {
			audit := &recordingAudit{}
			hist := history.NewLog()
			d := dispatch.New(dispatch.NewRecorder(), hist, dispatch.WithAudit(audit))

			err := d.Dispatch(ctx, testCommand())

			Convey("Then the command should be audited after publishing", func() {
				So(err, ShouldBeNil)
				So(audit.saved, ShouldHaveLength, 1)
			})
		})

		Convey("When the audit store fails", func() {
			audit := &recordingAudit{err: errors.New("disk full")}
			hist := history.NewLog()
			d := dispatch.New(dispatch.NewRecorder(), hist, dispatch.WithAudit(audit))

			err := d.Dispatch(ctx, testCommand())

			Convey("Then the dispatch should still succeed", func() {
				So(err, ShouldBeNil)
				So(hist.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestHTTPPublisher(t *testing.T) {
	Convey("Given an actuator HTTP endpoint", t, func() {
		ctx := context.Background()

		Convey("When the endpoint accepts the command", func(c C) {
			var received command.Command
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.Method, ShouldEqual, http.MethodPost)
				c.So(r.Header.Get("Content-Type"), ShouldEqual, "application/json")
				c.So(jsonDecode(r, &received), ShouldBeNil)
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			pub := dispatch.NewHTTPPublisher(srv.URL)
			err := pub.Publish(ctx, testCommand())

			Convey("Then the command should arrive intact", func() {
				So(err, ShouldBeNil)
				So(received.CarID, ShouldEqual, "car-1")
				So(received.Goal, ShouldEqual, command.GoalGoToBall)
				So(received.Actions, ShouldHaveLength, 3)
			})
		})

		Convey("When the endpoint rejects the command", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			pub := dispatch.NewHTTPPublisher(srv.URL)
			err := pub.Publish(ctx, testCommand())

			Convey("Then the publish should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func jsonDecode(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
