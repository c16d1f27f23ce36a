// Package input reads keypad ratings from a line-oriented stream.
package input

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/okian/markerrig/pkg/logger"
)

// Rater accepts a rating value.
type Rater interface {
	Rate(n int) bool
}

// LineReader turns each line of r holding a single integer into a rating.
// Anything else on a line is logged and skipped.
type LineReader struct {
	r      io.Reader
	rater  Rater
	logger logger.Logger
}

// NewLineReader creates a reader feeding rater.
func NewLineReader(r io.Reader, rater Rater, log logger.Logger) *LineReader {
	if log == nil {
		log = logger.Get()
	}
	return &LineReader{r: r, rater: rater, logger: log.Named("keypad")}
}

// Run reads until EOF or ctx is cancelled. Cancellation is only observed
// between lines.
func (l *LineReader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			l.logger.Warn(ctx, "keypad input is not a number", logger.String("input", line))
			continue
		}
		if !l.rater.Rate(n) {
			l.logger.Debug(ctx, "rating not delivered", logger.Int("value", n))
		}
	}
	return scanner.Err()
}
