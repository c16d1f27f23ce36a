// Package queue hands BCI samples from the ingestion goroutine to the pump.
//
// Only the freshest sample matters to the consumer, so a full queue drops
// its oldest entry instead of blocking the producer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 256
)

// Sample is the payload type flowing through the queue.
type Sample = model.Sample

// Queue provides non-blocking enqueue and dequeue of samples.
type Queue interface {
	// Enqueue adds a sample, evicting the oldest one when full.
	// Returns ErrClosed after Close.
	Enqueue(ctx context.Context, s Sample) error

	// TryDequeue returns the oldest sample, or false when empty.
	TryDequeue() (Sample, bool)

	// Len returns the current number of queued samples.
	Len() int

	// Close stops further enqueues. Queued samples stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// SampleQueue implements Queue using a buffered channel.
type SampleQueue struct {
	samples  chan Sample
	capacity int

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// NewSampleQueue creates a new queue with configuration options.
func NewSampleQueue(opts ...Option) *SampleQueue {
	q := &SampleQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.samples = make(chan Sample, q.capacity)

	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a sample to the queue.
func (q *SampleQueue) Enqueue(ctx context.Context, s Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	for {
		select {
		case q.samples <- s:
			metrics.UpdateQueueSize(len(q.samples))
			return nil
		default:
		}
		// Full: evict the oldest. The consumer may have emptied a slot in
		// the meantime, in which case the next send succeeds.
		select {
		case <-q.samples:
			q.dropped++
			metrics.RecordQueueDrop()
		default:
		}
	}
}

// TryDequeue returns the oldest queued sample without blocking.
func (q *SampleQueue) TryDequeue() (Sample, bool) {
	select {
	case s := <-q.samples:
		metrics.UpdateQueueSize(len(q.samples))
		return s, true
	default:
		return Sample{}, false
	}
}

// Len returns the current number of queued samples.
func (q *SampleQueue) Len() int {
	return len(q.samples)
}

// Dropped returns how many samples were evicted to make room.
func (q *SampleQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops further enqueues.
func (q *SampleQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *SampleQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
