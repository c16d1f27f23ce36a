package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/markerrig/internal/domain/model"
)

// MemoryJournal keeps records in process memory. It is the default when no
// store path is configured.
type MemoryJournal struct {
	mu      sync.RWMutex
	markers map[string][]model.MarkerRecord
	trials  map[string][]model.TrialRecord
	closed  bool
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		markers: make(map[string][]model.MarkerRecord),
		trials:  make(map[string][]model.TrialRecord),
	}
}

// AppendMarker implements Journal.
func (j *MemoryJournal) AppendMarker(ctx context.Context, rec model.MarkerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateMarker(rec); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.markers[rec.SessionID] = append(j.markers[rec.SessionID], rec)
	return nil
}

// AppendTrial implements Journal.
func (j *MemoryJournal) AppendTrial(ctx context.Context, rec model.TrialRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTrial(rec); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.trials[rec.SessionID] = append(j.trials[rec.SessionID], rec)
	return nil
}

// Markers implements Journal.
func (j *MemoryJournal) Markers(ctx context.Context, sessionID string) ([]model.MarkerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}
	recs, ok := j.markers[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.MarkerRecord, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out, nil
}

// Trials implements Journal.
func (j *MemoryJournal) Trials(ctx context.Context, sessionID string) ([]model.TrialRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}
	recs, ok := j.trials[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.TrialRecord, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out, nil
}

// Close implements Journal.
func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
	return nil
}
