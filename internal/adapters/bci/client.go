// Package bci receives valence/arousal estimates from the BCI classifier
// over a websocket and queues them for the reaction pump.
//
// A failure here degrades the rig (no avatar reactions) but never touches
// the marker path.
package bci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
	"github.com/okian/markerrig/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultURL         = "ws://127.0.0.1:8765/ws"
	defaultOrigin      = "http://127.0.0.1/"
	defaultDialTimeout = 5 * time.Second
)

// Enqueuer accepts decoded samples.
type Enqueuer interface {
	Enqueue(ctx context.Context, s model.Sample) error
}

// Client is a single-connection websocket consumer.
type Client struct {
	url         string
	origin      string
	dialTimeout time.Duration
	out         Enqueuer

	received     atomic.Uint64
	decodeErrors atomic.Uint64
	connected    atomic.Bool

	logger logger.Logger
}

// NewClient creates a client for url that hands samples to out.
func NewClient(url string, out Enqueuer, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:         url,
		origin:      defaultOrigin,
		dialTimeout: defaultDialTimeout,
		out:         out,
		logger:      logger.Get().Named("bci"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run connects once and receives until the peer closes, a receive error
// occurs or ctx is cancelled. A failed connect returns ErrConnect; peer
// close and cancellation return nil. Frames that fail to decode are
// dropped and counted.
func (c *Client) Run(ctx context.Context) error {
	cfg, err := websocket.NewConfig(c.url, c.origin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	cfg.Dialer = &net.Dialer{Timeout: c.dialTimeout}

	conn, err := cfg.DialContext(ctx)
	if err != nil {
		c.logger.Warn(ctx, "bci server unreachable, continuing without reactions",
			logger.String("url", c.url),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %s: %w", ErrConnect, c.url, err)
	}

	c.setConnected(true)
	defer c.setConnected(false)
	c.logger.Info(ctx, "bci connected", logger.String("url", c.url))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info(ctx, "bci server closed the connection")
				return nil
			}
			c.logger.Error(ctx, "bci receive failed", logger.Error(err))
			return fmt.Errorf("%w: %w", ErrReceive, err)
		}

		s, err := Decode(frame)
		if err != nil {
			c.decodeErrors.Add(1)
			metrics.RecordBCIDecodeError()
			c.logger.Debug(ctx, "bci frame dropped", logger.Error(err))
			continue
		}
		c.received.Add(1)
		metrics.RecordBCISample()

		if err := c.out.Enqueue(ctx, s); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn(ctx, "sample queue rejected sample, stopping", logger.Error(err))
			return nil
		}
	}
}

func (c *Client) setConnected(v bool) {
	c.connected.Store(v)
	metrics.UpdateBCIConnected(v)
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool { return c.connected.Load() }

// Received returns the number of decoded samples.
func (c *Client) Received() uint64 { return c.received.Load() }

// DecodeErrors returns the number of dropped frames.
func (c *Client) DecodeErrors() uint64 { return c.decodeErrors.Load() }
