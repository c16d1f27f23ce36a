package sequencer

import (
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// Default timings.
const (
	DefaultOpenRest        = 60 * time.Second
	DefaultCloseRest       = 60 * time.Second
	DefaultInterTrialDelay = 1 * time.Second
	DefaultFinishDelay     = 2 * time.Second
)

// Option applies a configuration option to the Sequencer.
type Option func(*Sequencer)

// WithRestDurations sets the eyes-open and eyes-closed rest lengths.
func WithRestDurations(open, closed time.Duration) Option {
	return func(s *Sequencer) {
		if open >= 0 {
			s.openRest = open
		}
		if closed >= 0 {
			s.closeRest = closed
		}
	}
}

// WithInterTrialDelay sets the pause between a trial's last rating and
// the next video.
func WithInterTrialDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.interTrial = d
		}
	}
}

// WithFinishDelay sets how long Run lingers after "Exp End".
func WithFinishDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.finishDelay = d
		}
	}
}

// WithRecorder stores completed trials under sessionID.
func WithRecorder(r Recorder, sessionID string) Option {
	return func(s *Sequencer) {
		if r != nil {
			s.recorder = r
			s.sessionID = sessionID
		}
	}
}

// WithScheduler replaces the wall-clock timer source.
func WithScheduler(sch Scheduler) Option {
	return func(s *Sequencer) {
		if sch != nil {
			s.sched = sch
		}
	}
}

// WithClock overrides the timestamp source used for trial records.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the sequencer.
func WithLogger(l logger.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}
