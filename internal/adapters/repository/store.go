// Package repository persists what a session sent and what the participant
// answered.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/markerrig/internal/domain/model"
)

// Journal is an append-only record of a session.
type Journal interface {
	// AppendMarker records a marker the authoritative transport accepted.
	AppendMarker(ctx context.Context, rec model.MarkerRecord) error
	// AppendTrial records a completed trial.
	AppendTrial(ctx context.Context, rec model.TrialRecord) error

	// Markers returns the session's markers ordered by sequence number.
	// Returns ErrNotFound if the session has none.
	Markers(ctx context.Context, sessionID string) ([]model.MarkerRecord, error)
	// Trials returns the session's trials ordered by index.
	// Returns ErrNotFound if the session has none.
	Trials(ctx context.Context, sessionID string) ([]model.TrialRecord, error)

	Close() error
}

func validateMarker(rec model.MarkerRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("%w: marker without session id", ErrInvalidRecord)
	}
	if rec.Name == "" {
		return fmt.Errorf("%w: marker without name", ErrInvalidRecord)
	}
	return nil
}

func validateTrial(rec model.TrialRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("%w: trial without session id", ErrInvalidRecord)
	}
	if rec.Index < 0 {
		return fmt.Errorf("%w: negative trial index %d", ErrInvalidRecord, rec.Index)
	}
	return nil
}
