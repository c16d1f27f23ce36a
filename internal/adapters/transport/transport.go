// Package transport delivers resolved markers to recording equipment.
//
// Every Sender makes exactly one attempt per call and reports failure as an
// error wrapping ErrTransport. Senders never retry.
package transport

import (
	"context"
	"time"

	"github.com/okian/markerrig/internal/domain/marker"
)

// Marker is a resolved marker on its way out. Name travels along for
// diagnostics and mirrors; only Code reaches the wire on UDP.
type Marker struct {
	Name string
	Code marker.Code
	At   time.Time
}

// Sender sends one marker to one backend.
type Sender interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Send makes a single delivery attempt.
	Send(ctx context.Context, m Marker) error
}
