package dedupe

// Option applies a configuration option to the tracker.
type Option func(*ringDeduper)

// WithMaxSize sets how many ids are remembered. maxSize <= 0 keeps every
// id for the life of the process.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
