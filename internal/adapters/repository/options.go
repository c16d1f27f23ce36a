package repository

import (
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// Option applies a configuration option to the SQLiteJournal.
type Option func(*SQLiteJournal)

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(j *SQLiteJournal) {
		if d > 0 {
			j.busyTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the journal.
func WithLogger(l logger.Logger) Option {
	return func(j *SQLiteJournal) {
		if l != nil {
			j.logger = l
		}
	}
}
