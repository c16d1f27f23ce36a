package queue

// Option applies a configuration option to the SampleQueue.
type Option func(*SampleQueue)

// WithCapacity sets the maximum number of buffered samples.
func WithCapacity(capacity int) Option {
	return func(q *SampleQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
