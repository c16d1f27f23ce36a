package transport

import (
	"context"

	"github.com/okian/markerrig/pkg/logger"
)

// LSLSender stands in for a lab-streaming-layer marker outlet. This build
// carries no LSL binding, so Send only logs the marker and succeeds.
type LSLSender struct {
	streamName string
	logger     logger.Logger
}

// NewLSLSender creates the placeholder outlet for streamName.
func NewLSLSender(streamName string, log logger.Logger) *LSLSender {
	if log == nil {
		log = logger.Get()
	}
	return &LSLSender{streamName: streamName, logger: log.Named("lsl-sender")}
}

// Name implements Sender.
func (s *LSLSender) Name() string { return "lsl" }

// Send implements Sender.
func (s *LSLSender) Send(ctx context.Context, m Marker) error {
	s.logger.Debug(ctx, "lsl outlet disabled, marker not streamed",
		logger.String("stream", s.streamName),
		logger.String("name", m.Name),
		logger.Uint8("code", uint8(m.Code)),
	)
	return nil
}
