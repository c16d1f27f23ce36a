package reaction_test

import (
	"testing"
	"time"

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/internal/domain/reaction"
	. "github.com/smartystreets/goconvey/convey"
)

type fixedClassifier struct{ calls int }

func (f *fixedClassifier) Classify(_, _ float64) model.Reaction {
	f.calls++
	return model.ReactionSad
}

func TestCooldownDriver(t *testing.T) {
	Convey("Given a driver with a 2s cooldown", t, func() {
		d := reaction.NewCooldownDriver(reaction.WithCooldown(2 * time.Second))
		t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		Convey("When the first sample arrives", func() {
			r, ok := d.Observe(t0, 0.8, 0.8)

			Convey("Then it should trigger the quadrant reaction", func() {
				So(ok, ShouldBeTrue)
				So(r, ShouldEqual, model.ReactionHappy)
			})
		})

		Convey("When two identical samples arrive in succession", func() {
			triggers := 0
			if _, ok := d.Observe(t0, 0.2, 0.8); ok {
				triggers++
			}
			if _, ok := d.Observe(t0.Add(5*time.Second), 0.2, 0.8); ok {
				triggers++
			}

			Convey("Then at most one reaction should fire", func() {
				So(triggers, ShouldEqual, 1)
			})
		})

		Convey("When a changed sample arrives inside the cooldown", func() {
			_, first := d.Observe(t0, 0.8, 0.8)
			_, inside := d.Observe(t0.Add(time.Second), 0.2, 0.2)

			Convey("Then it should be ignored", func() {
				So(first, ShouldBeTrue)
				So(inside, ShouldBeFalse)
			})

			Convey("And the same value polled after cooldown should fire exactly once", func() {
				r, after := d.Observe(t0.Add(2*time.Second), 0.2, 0.2)
				So(after, ShouldBeTrue)
				So(r, ShouldEqual, model.ReactionSad)

				_, again := d.Observe(t0.Add(10*time.Second), 0.2, 0.2)
				So(again, ShouldBeFalse)
			})
		})

		Convey("When a changed sample arrives after the cooldown", func() {
			d.Observe(t0, 0.8, 0.8)
			r, ok := d.Observe(t0.Add(3*time.Second), 0.2, 0.8)

			Convey("Then exactly one reaction should fire", func() {
				So(ok, ShouldBeTrue)
				So(r, ShouldEqual, model.ReactionAngry)
			})
		})

		Convey("When a change stays within epsilon", func() {
			d.Observe(t0, 0.8, 0.8)
			_, ok := d.Observe(t0.Add(time.Minute), 0.8+1e-4, 0.8-1e-4)

			Convey("Then it should count as unchanged", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When reset after a trigger", func() {
			d.Observe(t0, 0.8, 0.8)
			d.Reset()
			_, ok := d.Observe(t0.Add(time.Millisecond), 0.8, 0.8)

			Convey("Then the same sample should trigger again", func() {
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given a driver with default settings", t, func() {
		d := reaction.NewCooldownDriver()
		t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		d.Observe(t0, 0.8, 0.8)

		Convey("Then the cooldown should last DefaultCooldown", func() {
			_, early := d.Observe(t0.Add(reaction.DefaultCooldown-time.Millisecond), 0.2, 0.2)
			So(early, ShouldBeFalse)
			_, ok := d.Observe(t0.Add(reaction.DefaultCooldown), 0.2, 0.2)
			So(ok, ShouldBeTrue)
		})

		Convey("Then a change below DefaultEpsilon should count as unchanged", func() {
			_, ok := d.Observe(t0.Add(time.Minute), 0.8+reaction.DefaultEpsilon/2, 0.8)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a driver with a custom classifier and epsilon", t, func() {
		c := &fixedClassifier{}
		d := reaction.NewCooldownDriver(
			reaction.WithClassifier(c),
			reaction.WithEpsilon(0.1),
			reaction.WithCooldown(0),
		)
		t0 := time.Now()

		d.Observe(t0, 0.5, 0.5)
		d.Observe(t0, 0.55, 0.55)
		r, ok := d.Observe(t0, 0.7, 0.5)

		So(ok, ShouldBeTrue)
		So(r, ShouldEqual, model.ReactionSad)
		So(c.calls, ShouldEqual, 2)
	})
}
