package sequencer

import "time"

type eventKind int

const (
	evTimer eventKind = iota
	evVideoDone
	evRating
)

// timerPurpose says which wait a timer event ends.
type timerPurpose int

const (
	timerOpenRest timerPurpose = iota
	timerCloseRest
	timerNextTrial
	timerFinish
)

type event struct {
	kind    eventKind
	token   uint64
	purpose timerPurpose
	rating  int
	err     error
}

// Timer is a pending scheduled resumption.
type Timer interface {
	Stop() bool
}

// Scheduler schedules f to run once after d without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
