// Package api serves the rig's status and remote-keypad HTTP routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/markerrig/internal/domain/dedupe"
	"github.com/okian/markerrig/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Deduper makes rating submissions that carry an id idempotent.
	dedupe.Deduper

	// Rate forwards a keypad rating to the running session. It returns
	// false when no session took it.
	Rate(n int) bool

	// Latest returns the newest BCI sample, if any arrived.
	Latest() (model.Sample, bool)
}

// Server wires HTTP routes for the rig.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	affectHandler  *AffectHandler
	ratingsHandler *RatingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		affectHandler:  NewAffectHandler(deps),
		ratingsHandler: NewRatingsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/va", MetricsMiddleware(s.affectHandler.HandleGetAffect, "va"))
	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandlePostRating, "ratings"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
