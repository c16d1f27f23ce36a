package sequencer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/markerrig/internal/adapters/repository"
	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/internal/sequencer"
	"github.com/okian/markerrig/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	names  []string
	failOn string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	if name == d.failOn {
		return errors.New("udp write failed")
	}
	return nil
}

func (d *fakeDispatcher) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

type fakePlayer struct {
	mu       sync.Mutex
	started  []string
	callback func(error)
	startErr error
}

func (p *fakePlayer) Play(_ context.Context, media string, done func(error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.started = append(p.started, media)
	p.callback = done
	return nil
}

func (p *fakePlayer) plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.started)
}

func (p *fakePlayer) finish(err error) {
	p.mu.Lock()
	cb := p.callback
	p.mu.Unlock()
	cb(err)
}

type manualTimer struct {
	mu      *sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) sequencer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{mu: &s.mu, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs timer i as if its duration elapsed.
func (s *manualScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	t.fired = true
	s.mu.Unlock()
	t.f()
}

func (s *manualScheduler) duration(i int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i].d
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

type harness struct {
	seq     *sequencer.Sequencer
	disp    *fakeDispatcher
	player  *fakePlayer
	sched   *manualScheduler
	journal *repository.MemoryJournal
	result  chan error
}

func newHarness(trials []model.Trial, failOn string) *harness {
	h := &harness{
		disp:    &fakeDispatcher{failOn: failOn},
		player:  &fakePlayer{},
		sched:   &manualScheduler{},
		journal: repository.NewMemoryJournal(),
		result:  make(chan error, 1),
	}
	seq, err := sequencer.New(h.disp, h.player, trials,
		sequencer.WithScheduler(h.sched),
		sequencer.WithRecorder(h.journal, "s1"),
		sequencer.WithRestDurations(60*time.Second, 45*time.Second),
		sequencer.WithInterTrialDelay(time.Second),
		sequencer.WithFinishDelay(2*time.Second),
		sequencer.WithLogger(logger.Nop()),
	)
	if err != nil {
		panic(err)
	}
	h.seq = seq
	return h
}

func (h *harness) start(ctx context.Context) {
	go func() { h.result <- h.seq.Run(ctx) }()
}

func (h *harness) sentCount(n int) bool {
	return waitFor(func() bool { return len(h.disp.sent()) >= n })
}

func (h *harness) timers(n int) bool {
	return waitFor(func() bool { return h.sched.count() >= n })
}

func (h *harness) stage(s model.Stage) bool {
	return waitFor(func() bool { return h.seq.Status().Stage == s })
}

// throughRest walks both rest phases and waits for the first video.
func (h *harness) throughRest() {
	So(h.timers(1), ShouldBeTrue)
	h.sched.fire(0)
	So(h.timers(2), ShouldBeTrue)
	h.sched.fire(1)
	So(waitFor(func() bool { return h.player.plays() == 1 }), ShouldBeTrue)
}

func (h *harness) rateTrial(valence, arousal int) {
	h.player.finish(nil)
	So(h.stage(model.StageValenceRating), ShouldBeTrue)
	So(h.seq.Rate(valence), ShouldBeTrue)
	So(h.stage(model.StageArousalRating), ShouldBeTrue)
	So(h.seq.Rate(arousal), ShouldBeTrue)
}

func TestSequencerSingleTrial(t *testing.T) {
	Convey("Given a one-trial session", t, func() {
		h := newHarness([]model.Trial{{Media: "clip01.mp4", Category: "Happy"}}, "")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)

		Convey("When it runs through rest, video and ratings (3,4)", func() {
			h.throughRest()
			So(h.sched.duration(0), ShouldEqual, 60*time.Second)
			So(h.sched.duration(1), ShouldEqual, 45*time.Second)

			h.rateTrial(3, 4)
			So(h.stage(model.StageFinished), ShouldBeTrue)

			Convey("Then the marker stream is exactly the protocol order", func() {
				So(h.disp.sent(), ShouldResemble, []string{
					"Open Start", "Open End", "Close Start", "Close End",
					"Video Start", "Happy", "Video End",
					"Valence Rating Start", "Press", "Valence 3", "Valence Rating End",
					"Arousal Rating Start", "Press", "Arousal 4", "Arousal Rating End",
					"Exp End",
				})
			})

			Convey("Then the run ends cleanly after the finish delay", func() {
				So(h.timers(3), ShouldBeTrue)
				last := h.sched.count() - 1
				So(h.sched.duration(last), ShouldEqual, 2*time.Second)
				h.sched.fire(last)

				select {
				case err := <-h.result:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("run did not return", ShouldBeEmpty)
				}
			})

			Convey("Then the completed trial is journaled", func() {
				recs, err := h.journal.Trials(context.Background(), "s1")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Valence, ShouldEqual, 3)
				So(recs[0].Arousal, ShouldEqual, 4)
				So(recs[0].Category, ShouldEqual, "Happy")
				So(h.seq.Status().Completed, ShouldEqual, 1)
			})
		})
	})
}

func TestSequencerIgnoresRatings(t *testing.T) {
	Convey("Given a running session", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Sad"}}, "")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)
		So(h.sentCount(1), ShouldBeTrue)

		Convey("When ratings arrive during rest and playback", func() {
			So(h.seq.Rate(2), ShouldBeTrue)
			h.throughRest()
			So(h.seq.Rate(5), ShouldBeTrue)
			h.player.finish(nil)
			So(h.stage(model.StageValenceRating), ShouldBeTrue)
			So(h.sentCount(8), ShouldBeTrue)

			Convey("Then they produce no markers", func() {
				So(h.disp.sent(), ShouldResemble, []string{
					"Open Start", "Open End", "Close Start", "Close End",
					"Video Start", "Sad", "Video End", "Valence Rating Start",
				})
			})
		})

		Convey("When an out-of-range rating arrives in a rating stage", func() {
			h.throughRest()
			h.player.finish(nil)
			So(h.stage(model.StageValenceRating), ShouldBeTrue)
			So(h.seq.Rate(0), ShouldBeTrue)
			So(h.seq.Rate(6), ShouldBeTrue)
			So(h.seq.Rate(2), ShouldBeTrue)
			So(h.sentCount(12), ShouldBeTrue)

			Convey("Then only the valid rating is sent", func() {
				sent := h.disp.sent()
				So(sent[8:], ShouldResemble, []string{
					"Press", "Valence 2", "Valence Rating End", "Arousal Rating Start",
				})
			})
		})
	})
}

func TestSequencerTerminal(t *testing.T) {
	Convey("Given a two-trial session", t, func() {
		h := newHarness([]model.Trial{
			{Media: "a.mp4", Category: "Happy"},
			{Media: "b.mp4", Category: "Fear"},
		}, "")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)

		Convey("When both trials are rated", func() {
			h.throughRest()
			h.rateTrial(1, 2)

			So(h.timers(3), ShouldBeTrue)
			So(h.sched.duration(2), ShouldEqual, time.Second)
			So(h.disp.sent(), ShouldNotContain, "Exp End")
			h.sched.fire(2)
			So(waitFor(func() bool { return h.player.plays() == 2 }), ShouldBeTrue)

			h.rateTrial(5, 5)
			So(h.stage(model.StageFinished), ShouldBeTrue)

			Convey("Then exactly one Exp End closes the stream", func() {
				sent := h.disp.sent()
				count := 0
				for _, n := range sent {
					if n == "Exp End" {
						count++
					}
				}
				So(count, ShouldEqual, 1)
				So(sent[len(sent)-1], ShouldEqual, "Exp End")
			})

			Convey("Then later ratings and callbacks emit nothing", func() {
				before := len(h.disp.sent())
				h.seq.Rate(3)
				h.player.finish(nil)
				time.Sleep(20 * time.Millisecond)
				So(h.disp.sent(), ShouldHaveLength, before)
			})
		})
	})
}

func TestSequencerAbort(t *testing.T) {
	Convey("Given a session whose transport fails on Video End", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Happy"}}, "Video End")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)

		Convey("When playback completes", func() {
			h.throughRest()
			h.player.finish(nil)

			Convey("Then the run aborts and nothing else is sent", func() {
				select {
				case err := <-h.result:
					So(errors.Is(err, sequencer.ErrSessionAborted), ShouldBeTrue)
				case <-time.After(2 * time.Second):
					So("run did not abort", ShouldBeEmpty)
				}

				So(h.seq.Rate(3), ShouldBeFalse)
				sent := h.disp.sent()
				So(sent[len(sent)-1], ShouldEqual, "Video End")
				So(sent, ShouldNotContain, "Valence Rating Start")

				st := h.seq.Status()
				So(st.Aborted, ShouldBeTrue)
				So(st.Running, ShouldBeFalse)
			})
		})
	})

	Convey("Given a player that cannot start", t, func() {
		h := newHarness([]model.Trial{{Media: "missing.mp4", Category: "Happy"}}, "")
		h.player.startErr = errors.New("no such file")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)

		So(h.timers(1), ShouldBeTrue)
		h.sched.fire(0)
		So(h.timers(2), ShouldBeTrue)
		h.sched.fire(1)

		select {
		case err := <-h.result:
			So(errors.Is(err, sequencer.ErrSessionAborted), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "no such file")
		case <-time.After(2 * time.Second):
			So("run did not abort", ShouldBeEmpty)
		}
	})

	Convey("Given a session that fails on its first marker", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Happy"}}, "Open Start")
		err := h.seq.Run(context.Background())

		So(errors.Is(err, sequencer.ErrSessionAborted), ShouldBeTrue)
		So(h.disp.sent(), ShouldResemble, []string{"Open Start"})
		So(h.sched.count(), ShouldEqual, 0)
	})
}

func TestSequencerStaleTimer(t *testing.T) {
	Convey("Given a session past its first rest phase", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Calm"}}, "")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)

		So(h.timers(1), ShouldBeTrue)
		h.sched.fire(0)
		So(h.timers(2), ShouldBeTrue)

		Convey("When the old rest timer fires again", func() {
			h.sched.fire(0)
			time.Sleep(20 * time.Millisecond)

			Convey("Then it is ignored", func() {
				So(h.disp.sent(), ShouldResemble, []string{"Open Start", "Open End", "Close Start"})
			})
		})
	})
}

func TestSequencerLifecycle(t *testing.T) {
	Convey("New should reject an empty trial list", t, func() {
		_, err := sequencer.New(&fakeDispatcher{}, &fakePlayer{}, nil)
		So(errors.Is(err, sequencer.ErrNoTrials), ShouldBeTrue)
	})

	Convey("Rate before Run should not be delivered", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Happy"}}, "")
		So(h.seq.Rate(3), ShouldBeFalse)
	})

	Convey("Cancelling the context should stop the run", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Happy"}}, "")
		ctx, cancel := context.WithCancel(context.Background())
		h.start(ctx)
		So(h.sentCount(1), ShouldBeTrue)
		cancel()

		select {
		case err := <-h.result:
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		case <-time.After(2 * time.Second):
			So("run did not stop", ShouldBeEmpty)
		}
	})

	Convey("A second Run should be refused", t, func() {
		h := newHarness([]model.Trial{{Media: "a.mp4", Category: "Happy"}}, "")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.start(ctx)
		So(h.sentCount(1), ShouldBeTrue)
		So(errors.Is(h.seq.Run(ctx), sequencer.ErrAlreadyRunning), ShouldBeTrue)
	})
}
