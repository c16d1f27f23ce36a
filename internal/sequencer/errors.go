package sequencer

import "errors"

// Sentinel kinds for sequencer errors.
var (
	ErrSessionAborted = errors.New("session aborted")
	ErrNoTrials       = errors.New("no trials configured")
	ErrNotConfigured  = errors.New("sequencer not configured")
	ErrAlreadyRunning = errors.New("sequencer already running")
)
