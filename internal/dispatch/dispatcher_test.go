package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/markerrig/internal/adapters/repository"
	"github.com/okian/markerrig/internal/adapters/transport"
	"github.com/okian/markerrig/internal/dispatch"
	"github.com/okian/markerrig/internal/domain/marker"
	"github.com/okian/markerrig/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingSender struct {
	name string
	err  error

	mu   sync.Mutex
	sent []transport.Marker
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) Send(_ context.Context, m transport.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return s.err
}

func (s *recordingSender) markers() []transport.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Marker, len(s.sent))
	copy(out, s.sent)
	return out
}

func TestDispatch(t *testing.T) {
	Convey("Given a dispatcher over the video-rating table", t, func() {
		table, err := marker.Builtin(marker.ProtocolVideoRating)
		So(err, ShouldBeNil)

		primary := &recordingSender{name: "udp"}
		mirror := &recordingSender{name: "mqtt"}
		journal := repository.NewMemoryJournal()
		at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		d, err := dispatch.New(table, primary,
			dispatch.WithAdvisory(mirror),
			dispatch.WithJournal(journal, "session-1"),
			dispatch.WithClock(func() time.Time { return at }),
			dispatch.WithLogger(logger.Nop()),
		)
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When a known name is dispatched", func() {
			err := d.Dispatch(ctx, marker.VideoEnd)

			Convey("Then exactly one send carries its code", func() {
				So(err, ShouldBeNil)
				sent := primary.markers()
				So(sent, ShouldHaveLength, 1)
				So(sent[0].Code, ShouldEqual, marker.Code(21))
				So(sent[0].Name, ShouldEqual, marker.VideoEnd)
				So(sent[0].At.Equal(at), ShouldBeTrue)
			})

			Convey("Then the advisory backend sees the same marker", func() {
				So(mirror.markers(), ShouldHaveLength, 1)
				So(mirror.markers()[0].Code, ShouldEqual, marker.Code(21))
			})

			Convey("Then the marker is journaled with a sequence number", func() {
				recs, err := journal.Markers(ctx, "session-1")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Seq, ShouldEqual, int64(1))
				So(recs[0].Code, ShouldEqual, uint8(21))
			})

			Convey("Then stats count one success", func() {
				sent, failed := d.Stats()
				So(sent, ShouldEqual, uint64(1))
				So(failed, ShouldEqual, uint64(0))
			})
		})

		Convey("When an unknown name is dispatched", func() {
			err := d.Dispatch(ctx, "Not A Marker")

			Convey("Then it fails without contacting any transport", func() {
				So(errors.Is(err, marker.ErrCodeNotFound), ShouldBeTrue)
				So(primary.markers(), ShouldBeEmpty)
				So(mirror.markers(), ShouldBeEmpty)
				_, failed := d.Stats()
				So(failed, ShouldEqual, uint64(1))
			})
		})

		Convey("When the authoritative transport fails", func() {
			primary.err = transport.ErrTransport
			err := d.Dispatch(ctx, marker.Press)

			Convey("Then the failure propagates and the mirror still gets the marker once", func() {
				So(errors.Is(err, transport.ErrTransport), ShouldBeTrue)
				So(primary.markers(), ShouldHaveLength, 1)
				So(mirror.markers(), ShouldHaveLength, 1)
				So(mirror.markers()[0].Name, ShouldEqual, marker.Press)
			})

			Convey("Then nothing is journaled or counted as sent", func() {
				_, jerr := journal.Markers(ctx, "session-1")
				So(errors.Is(jerr, repository.ErrNotFound), ShouldBeTrue)
				sent, failed := d.Stats()
				So(sent, ShouldEqual, uint64(0))
				So(failed, ShouldEqual, uint64(1))
			})
		})

		Convey("When only the advisory transport fails", func() {
			mirror.err = errors.New("broker down")
			err := d.Dispatch(ctx, marker.Press)

			Convey("Then the dispatch still succeeds", func() {
				So(err, ShouldBeNil)
				So(primary.markers(), ShouldHaveLength, 1)
			})
		})

		Convey("When the journal is unavailable", func() {
			So(journal.Close(), ShouldBeNil)
			err := d.Dispatch(ctx, marker.ExpEnd)

			Convey("Then the marker still counts as sent", func() {
				So(err, ShouldBeNil)
				So(primary.markers()[0].Code, ShouldEqual, marker.Code(250))
			})
		})
	})

	Convey("A dispatcher needs a table and a sender", t, func() {
		_, err := dispatch.New(nil, &recordingSender{})
		So(errors.Is(err, dispatch.ErrNotConfigured), ShouldBeTrue)

		table, _ := marker.Builtin(marker.ProtocolArrow)
		_, err = dispatch.New(table, nil)
		So(errors.Is(err, dispatch.ErrNotConfigured), ShouldBeTrue)
	})
}
