// Package simulator stands in for the BCI classifier: it serves a
// websocket at /ws and broadcasts synthetic valence/arousal samples to
// every connected client.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
)

// Path is the only websocket path accepted.
const Path = "/ws"

const defaultWriteTimeout = time.Second

// Server tracks connected clients and fans samples out to them.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan struct{}

	writeTimeout time.Duration
	logger       logger.Logger
}

// NewServer creates an empty server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		clients:      make(map[*websocket.Conn]chan struct{}),
		writeTimeout: defaultWriteTimeout,
		logger:       logger.Get().Named("bci-sim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler. Requests for any other path are
// rejected before the upgrade.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	ws := websocket.Handler(s.serve)
	mux.HandleFunc(Path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn(r.Context(), "rejected connection on path", logger.String("path", r.URL.Path))
		http.NotFound(w, r)
	})
	return mux
}

func (s *Server) serve(conn *websocket.Conn) {
	ctx := conn.Request().Context()
	closed := make(chan struct{})

	s.mu.Lock()
	s.clients[conn] = closed
	n := len(s.clients)
	s.mu.Unlock()
	s.logger.Info(ctx, "client connected", logger.String("remote", conn.Request().RemoteAddr), logger.Int("clients", n))

	// Clients never send anything meaningful; reading only detects close.
	go func() {
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				s.drop(conn)
				return
			}
		}
	}()

	<-closed
	s.logger.Info(ctx, "client disconnected", logger.String("remote", conn.Request().RemoteAddr))
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	closed, ok := s.clients[conn]
	delete(s.clients, conn)
	s.mu.Unlock()
	if ok {
		_ = conn.Close()
		close(closed)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends sample to every client. Clients that fail the write are
// dropped. It returns the number of successful deliveries.
func (s *Server) Broadcast(ctx context.Context, sample model.Sample) (int, error) {
	data, err := json.Marshal(sample)
	if err != nil {
		return 0, fmt.Errorf("marshal sample: %w", err)
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	delivered := 0
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := websocket.Message.Send(c, string(data)); err != nil {
			s.logger.Debug(ctx, "dropping client after failed write", logger.Error(err))
			s.drop(c)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// Run broadcasts one generated sample per interval until ctx is done.
func (s *Server) Run(ctx context.Context, g *Generator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case now := <-ticker.C:
			if _, err := s.Broadcast(ctx, g.Next(now)); err != nil {
				s.logger.Error(ctx, "broadcast failed", logger.Error(err))
			}
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.drop(c)
	}
}
