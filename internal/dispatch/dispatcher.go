// Package dispatch turns semantic event names into markers on the wire.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/markerrig/internal/adapters/repository"
	"github.com/okian/markerrig/internal/adapters/transport"
	"github.com/okian/markerrig/internal/domain/marker"
	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
	"github.com/okian/markerrig/pkg/metrics"
)

// Lookup resolves marker names to codes.
type Lookup interface {
	Lookup(name string) (marker.Code, error)
}

// Dispatcher resolves a name and sends the code once on the authoritative
// sender, then mirrors it to any advisory senders.
type Dispatcher struct {
	table    Lookup
	primary  transport.Sender
	advisory []transport.Sender
	journal  repository.Journal
	session  string
	clock    func() time.Time

	seq    atomic.Int64
	mu     sync.Mutex
	sent   uint64
	failed uint64

	logger logger.Logger
}

// New creates a Dispatcher. table and primary are required.
func New(table Lookup, primary transport.Sender, opts ...Option) (*Dispatcher, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil code table", ErrNotConfigured)
	}
	if primary == nil {
		return nil, fmt.Errorf("%w: nil authoritative sender", ErrNotConfigured)
	}
	d := &Dispatcher{
		table:   table,
		primary: primary,
		clock:   time.Now,
		logger:  logger.Get().Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch sends the marker registered under name. A nil return means the
// authoritative transport accepted the datagram. Advisory backends are
// attempted whatever that outcome. Unknown names fail without touching any
// transport.
func (d *Dispatcher) Dispatch(ctx context.Context, name string) error {
	code, err := d.table.Lookup(name)
	if err != nil {
		d.recordFailure("unknown_name")
		d.logger.Error(ctx, "marker name not in code table", logger.String("name", name), logger.Error(err))
		return fmt.Errorf("dispatch %q: %w", name, err)
	}

	m := transport.Marker{Name: name, Code: code, At: d.clock()}

	start := time.Now()
	err = d.primary.Send(ctx, m)
	metrics.RecordMarkerSendLatency(float64(time.Since(start).Microseconds()) / 1000)

	// Advisory backends see every resolved marker, including one the
	// authoritative transport rejected.
	for _, s := range d.advisory {
		if aerr := s.Send(ctx, m); aerr != nil {
			metrics.RecordAdvisoryFailure(s.Name())
			d.logger.Warn(ctx, "advisory marker send failed",
				logger.String("name", name),
				logger.String("backend", s.Name()),
				logger.Error(aerr),
			)
		}
	}

	if err != nil {
		d.recordFailure("transport")
		d.logger.Error(ctx, "marker send failed",
			logger.String("name", name),
			logger.Uint8("code", uint8(code)),
			logger.String("backend", d.primary.Name()),
			logger.Error(err),
		)
		return fmt.Errorf("dispatch %q: %w", name, err)
	}

	d.mu.Lock()
	d.sent++
	d.mu.Unlock()
	metrics.RecordMarkerDispatched(name)

	d.record(ctx, m)

	d.logger.Info(ctx, "marker sent", logger.String("name", name), logger.Uint8("code", uint8(code)))
	return nil
}

func (d *Dispatcher) record(ctx context.Context, m transport.Marker) {
	if d.journal == nil {
		return
	}
	rec := model.MarkerRecord{
		SessionID: d.session,
		Seq:       d.seq.Add(1),
		Name:      m.Name,
		Code:      uint8(m.Code),
		SentAt:    m.At,
	}
	if err := d.journal.AppendMarker(ctx, rec); err != nil {
		metrics.RecordJournalError()
		d.logger.Warn(ctx, "marker not journaled", logger.String("name", m.Name), logger.Error(err))
	}
}

func (d *Dispatcher) recordFailure(reason string) {
	d.mu.Lock()
	d.failed++
	d.mu.Unlock()
	metrics.RecordMarkerFailure(reason)
}

// Stats returns the number of markers sent and failed so far.
func (d *Dispatcher) Stats() (sent, failed uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent, d.failed
}
