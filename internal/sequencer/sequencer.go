// Package sequencer runs an experiment session: rest phases, video trials
// and keypad ratings, with a marker dispatched at every transition.
//
// All state changes happen on the goroutine running Run. Timers, the
// player's completion callback and rating input only post events to it.
// The first failed dispatch aborts the session and nothing is sent after.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/markerrig/internal/domain/marker"
	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
	"github.com/okian/markerrig/pkg/metrics"
)

const eventBuffer = 64

// Dispatcher sends one named marker.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string) error
}

// Player starts media playback and reports its end through done, exactly
// once, from any goroutine. Play must not block until playback ends.
type Player interface {
	Play(ctx context.Context, media string, done func(error)) error
}

// Recorder stores completed trials.
type Recorder interface {
	AppendTrial(ctx context.Context, rec model.TrialRecord) error
}

// Rest sub-phases.
const (
	RestOpen   = "open"
	RestClosed = "closed"
)

// Status is a point-in-time view of a session.
type Status struct {
	Stage     model.Stage `json:"-"`
	StageName string      `json:"stage"`
	Rest      string      `json:"rest,omitempty"`
	Trial     int         `json:"trial"`
	Trials    int         `json:"trials"`
	Completed int         `json:"completed"`
	Running   bool        `json:"running"`
	Aborted   bool        `json:"aborted"`
	Error     string      `json:"error,omitempty"`
}

// Sequencer is the experiment state machine.
type Sequencer struct {
	dispatcher Dispatcher
	player     Player
	trials     []model.Trial

	recorder  Recorder
	sessionID string
	sched     Scheduler
	clock     func() time.Time

	openRest    time.Duration
	closeRest   time.Duration
	interTrial  time.Duration
	finishDelay time.Duration

	events  chan event
	done    chan struct{}
	running atomic.Bool

	// loop-owned state
	stage     model.Stage
	rest      string
	index     int
	current   model.TrialRecord
	token     uint64
	timer     Timer
	completed int

	mu     sync.RWMutex
	status Status

	logger logger.Logger
}

// New creates a Sequencer for trials. The trial list is copied.
func New(d Dispatcher, p Player, trials []model.Trial, opts ...Option) (*Sequencer, error) {
	if d == nil || p == nil {
		return nil, ErrNotConfigured
	}
	if len(trials) == 0 {
		return nil, ErrNoTrials
	}
	s := &Sequencer{
		dispatcher:  d,
		player:      p,
		trials:      append([]model.Trial(nil), trials...),
		sched:       realScheduler{},
		clock:       time.Now,
		openRest:    DefaultOpenRest,
		closeRest:   DefaultCloseRest,
		interTrial:  DefaultInterTrialDelay,
		finishDelay: DefaultFinishDelay,
		events:      make(chan event, eventBuffer),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("sequencer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = Status{Stage: model.StageResting, StageName: model.StageResting.String(), Trials: len(s.trials)}
	return s, nil
}

// Run executes the session and blocks until it finishes, aborts or ctx is
// cancelled. It returns nil only after "Exp End" and the finish delay.
// A failed dispatch returns an error wrapping ErrSessionAborted.
func (s *Sequencer) Run(ctx context.Context) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		close(s.done)
		if s.timer != nil {
			s.timer.Stop()
		}
		s.publish(func(st *Status) {
			st.Running = false
			if err != nil {
				st.Error = err.Error()
			}
		})
	}()
	s.publish(func(st *Status) { st.Running = true })

	s.logger.Info(ctx, "session started", logger.String("session", s.sessionID), logger.Int("trials", len(s.trials)))

	if err := s.enterRest(ctx); err != nil {
		return s.abort(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Warn(ctx, "session interrupted", logger.String("stage", s.stage.String()))
			return ctx.Err()
		case ev := <-s.events:
			finished, err := s.handle(ctx, ev)
			if err != nil {
				return s.abort(ctx, err)
			}
			if finished {
				s.logger.Info(ctx, "session finished", logger.Int("trials", s.completed))
				return nil
			}
		}
	}
}

// Rate submits a keypad rating. It reports whether the rating was handed
// to the running session; whether the current stage accepts it is decided
// by the session itself.
func (s *Sequencer) Rate(n int) bool {
	if !s.running.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- event{kind: evRating, rating: n}:
		return true
	default:
		return false
	}
}

// Status returns the current session status.
func (s *Sequencer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Sequencer) handle(ctx context.Context, ev event) (bool, error) {
	switch ev.kind {
	case evTimer:
		if ev.token != s.token {
			s.logger.Debug(ctx, "stale timer ignored")
			return false, nil
		}
		return s.onTimer(ctx, ev.purpose)
	case evVideoDone:
		if ev.token != s.token || s.stage != model.StageVideoPlayback {
			s.logger.Debug(ctx, "stale playback completion ignored")
			return false, nil
		}
		if ev.err != nil {
			return false, fmt.Errorf("playback of %q: %w", s.current.Media, ev.err)
		}
		return false, s.onVideoDone(ctx)
	case evRating:
		return false, s.onRating(ctx, ev.rating)
	}
	return false, nil
}

func (s *Sequencer) onTimer(ctx context.Context, p timerPurpose) (bool, error) {
	switch p {
	case timerOpenRest:
		if err := s.send(ctx, marker.OpenEnd, marker.CloseStart); err != nil {
			return false, err
		}
		s.rest = RestClosed
		s.publish(func(st *Status) { st.Rest = RestClosed })
		s.schedule(s.closeRest, timerCloseRest)
	case timerCloseRest:
		if err := s.send(ctx, marker.CloseEnd); err != nil {
			return false, err
		}
		s.rest = ""
		return false, s.enterVideo(ctx, 0)
	case timerNextTrial:
		return false, s.enterVideo(ctx, s.index)
	case timerFinish:
		return true, nil
	}
	return false, nil
}

func (s *Sequencer) enterRest(ctx context.Context) error {
	s.setStage(model.StageResting)
	s.rest = RestOpen
	s.publish(func(st *Status) { st.Rest = RestOpen })
	if err := s.send(ctx, marker.OpenStart); err != nil {
		return err
	}
	s.schedule(s.openRest, timerOpenRest)
	return nil
}

func (s *Sequencer) enterVideo(ctx context.Context, i int) error {
	trial := s.trials[i]
	s.index = i
	s.current = model.TrialRecord{
		SessionID: s.sessionID,
		Index:     i,
		Media:     trial.Media,
		Category:  trial.Category,
		StartedAt: s.clock(),
	}
	s.setStage(model.StageVideoPlayback)
	s.publish(func(st *Status) {
		st.Rest = ""
		st.Trial = i
	})

	if err := s.send(ctx, marker.VideoStart, trial.Category); err != nil {
		return err
	}

	s.token++
	token := s.token
	err := s.player.Play(ctx, trial.Media, func(perr error) {
		s.post(event{kind: evVideoDone, token: token, err: perr})
	})
	if err != nil {
		return fmt.Errorf("start playback of %q: %w", trial.Media, err)
	}
	s.logger.Info(ctx, "video started", logger.Int("trial", i), logger.String("media", trial.Media), logger.String("category", trial.Category))
	return nil
}

func (s *Sequencer) onVideoDone(ctx context.Context) error {
	if err := s.send(ctx, marker.VideoEnd); err != nil {
		return err
	}
	return s.enterRating(ctx, model.StageValenceRating)
}

// enterRating switches to a rating stage. The start marker goes out here,
// on entry, so it is sent exactly once per rating stage.
func (s *Sequencer) enterRating(ctx context.Context, stage model.Stage) error {
	s.setStage(stage)
	start := marker.ValenceRatingStart
	if stage == model.StageArousalRating {
		start = marker.ArousalRatingStart
	}
	return s.send(ctx, start)
}

func (s *Sequencer) onRating(ctx context.Context, n int) error {
	if !s.stage.IsRating() {
		metrics.RecordRatingIgnored()
		s.logger.Debug(ctx, "rating ignored outside rating stage", logger.Int("value", n), logger.String("stage", s.stage.String()))
		return nil
	}
	if n < marker.MinRating || n > marker.MaxRating {
		metrics.RecordRatingIgnored()
		s.logger.Warn(ctx, "rating out of range ignored", logger.Int("value", n))
		return nil
	}

	if s.stage == model.StageValenceRating {
		if err := s.send(ctx, marker.Press, marker.ValenceName(n), marker.ValenceRatingEnd); err != nil {
			return err
		}
		s.current.Valence = n
		return s.enterRating(ctx, model.StageArousalRating)
	}

	if err := s.send(ctx, marker.Press, marker.ArousalName(n), marker.ArousalRatingEnd); err != nil {
		return err
	}
	s.current.Arousal = n
	s.completeTrial(ctx)

	s.index++
	if s.index < len(s.trials) {
		// Between trials no stage accepts ratings.
		s.setStage(model.StageVideoPlayback)
		s.schedule(s.interTrial, timerNextTrial)
		return nil
	}

	if err := s.send(ctx, marker.ExpEnd); err != nil {
		return err
	}
	s.setStage(model.StageFinished)
	s.schedule(s.finishDelay, timerFinish)
	return nil
}

func (s *Sequencer) completeTrial(ctx context.Context) {
	s.current.CompletedAt = s.clock()
	s.completed++
	metrics.RecordTrialCompleted()
	s.publish(func(st *Status) { st.Completed = s.completed })

	s.logger.Info(ctx, "trial completed",
		logger.Int("trial", s.current.Index),
		logger.String("category", s.current.Category),
		logger.Int("valence", s.current.Valence),
		logger.Int("arousal", s.current.Arousal),
	)

	if s.recorder == nil {
		return
	}
	if err := s.recorder.AppendTrial(ctx, s.current); err != nil {
		metrics.RecordJournalError()
		s.logger.Warn(ctx, "trial not journaled", logger.Int("trial", s.current.Index), logger.Error(err))
	}
}

// send dispatches names in order and stops at the first failure.
func (s *Sequencer) send(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := s.dispatcher.Dispatch(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) schedule(d time.Duration, p timerPurpose) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.token++
	token := s.token
	s.timer = s.sched.AfterFunc(d, func() {
		s.post(event{kind: evTimer, token: token, purpose: p})
	})
}

// post delivers an event to the loop unless Run has returned.
func (s *Sequencer) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Sequencer) abort(ctx context.Context, cause error) error {
	metrics.RecordSessionAborted()
	s.logger.Error(ctx, "session aborted",
		logger.String("stage", s.stage.String()),
		logger.Int("trial", s.index),
		logger.Error(cause),
	)
	s.publish(func(st *Status) { st.Aborted = true })
	return fmt.Errorf("%w: %w", ErrSessionAborted, cause)
}

func (s *Sequencer) setStage(stage model.Stage) {
	s.stage = stage
	metrics.UpdateStage(int(stage))
	s.publish(func(st *Status) {
		st.Stage = stage
		st.StageName = stage.String()
	})
}

func (s *Sequencer) publish(update func(*Status)) {
	s.mu.Lock()
	update(&s.status)
	s.mu.Unlock()
}
