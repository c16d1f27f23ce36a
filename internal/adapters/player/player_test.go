package player_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/markerrig/internal/adapters/player"
	"github.com/okian/markerrig/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func waitDone(ch <-chan error) (bool, error) {
	select {
	case err := <-ch:
		return true, err
	case <-time.After(5 * time.Second):
		return false, nil
	}
}

func TestExecPlayer(t *testing.T) {
	Convey("Given a media directory with one clip", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("x"), 0o600), ShouldBeNil)

		Convey("When the player process exits cleanly", func() {
			p, err := player.NewExecPlayer("true {media}", dir, player.WithLogger(logger.Nop()))
			So(err, ShouldBeNil)

			done := make(chan error, 1)
			So(p.Play(context.Background(), "clip.mp4", func(err error) { done <- err }), ShouldBeNil)

			Convey("Then done reports success", func() {
				ok, err := waitDone(done)
				So(ok, ShouldBeTrue)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the player process fails", func() {
			p, err := player.NewExecPlayer("false", dir, player.WithLogger(logger.Nop()))
			So(err, ShouldBeNil)

			done := make(chan error, 1)
			So(p.Play(context.Background(), "clip.mp4", func(err error) { done <- err }), ShouldBeNil)

			Convey("Then done carries the exit error", func() {
				ok, err := waitDone(done)
				So(ok, ShouldBeTrue)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the clip does not exist", func() {
			p, err := player.NewExecPlayer("true", dir, player.WithLogger(logger.Nop()))
			So(err, ShouldBeNil)

			err = p.Play(context.Background(), "missing.mp4", func(error) {})
			So(errors.Is(err, player.ErrMediaNotFound), ShouldBeTrue)
		})
	})

	Convey("An empty command should be rejected", t, func() {
		_, err := player.NewExecPlayer("   ", "")
		So(errors.Is(err, player.ErrNoCommand), ShouldBeTrue)
	})

	Convey("An unknown binary should be rejected", t, func() {
		_, err := player.NewExecPlayer("definitely-not-a-player-binary", "")
		So(err, ShouldNotBeNil)
	})
}

func TestTimedPlayer(t *testing.T) {
	Convey("A timed player should finish after its fixed length", t, func() {
		p := player.NewTimedPlayer(10 * time.Millisecond)
		done := make(chan error, 1)
		start := time.Now()

		So(p.Play(context.Background(), "any.mp4", func(err error) { done <- err }), ShouldBeNil)

		ok, err := waitDone(done)
		So(ok, ShouldBeTrue)
		So(err, ShouldBeNil)
		So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 10*time.Millisecond)
	})
}
