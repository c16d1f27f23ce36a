package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// Default UDP configuration constants.
const (
	DefaultUDPHost     = "192.168.1.11"
	DefaultUDPPort     = 9999
	defaultUDPDeadline = 500 * time.Millisecond
)

// UDPSender writes each marker as its ASCII decimal value in a single
// datagram. It is the authoritative marker backend.
type UDPSender struct {
	mu     sync.Mutex
	conn   net.PacketConn
	addr   *net.UDPAddr
	closed bool

	writeTimeout time.Duration
	logger       logger.Logger
}

// NewUDPSender resolves host:port and opens an unconnected UDP socket.
func NewUDPSender(host string, port int, opts ...UDPOption) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s:%d: %w", ErrTransport, host, port, err)
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("%w: open socket: %w", ErrTransport, err)
	}

	s := &UDPSender{
		conn:         conn,
		addr:         addr,
		writeTimeout: defaultUDPDeadline,
		logger:       logger.Get().Named("udp-sender"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Sender.
func (s *UDPSender) Name() string { return "udp" }

// Addr returns the destination address.
func (s *UDPSender) Addr() string { return s.addr.String() }

// Send implements Sender. A successful return means the datagram was
// handed to the network stack, not that the peer received it.
func (s *UDPSender) Send(ctx context.Context, m Marker) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: %w", ErrTransport, ErrClosed)
	}

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrTransport, err)
	}

	payload := []byte(strconv.Itoa(int(m.Code)))
	n, err := s.conn.WriteTo(payload, s.addr)
	if err != nil {
		return fmt.Errorf("%w: write to %s: %w", ErrTransport, s.addr, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: short write to %s (%d of %d bytes)", ErrTransport, s.addr, n, len(payload))
	}

	s.logger.Debug(ctx, "sent udp marker",
		logger.String("name", m.Name),
		logger.Uint8("code", uint8(m.Code)),
		logger.String("addr", s.addr.String()),
	)
	return nil
}

// Close releases the socket. Later sends fail with ErrClosed.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
