package api

import (
	"net/http"

	"github.com/okian/markerrig/internal/domain/model"
)

// LatestSampler exposes the newest BCI sample.
type LatestSampler interface {
	Latest() (model.Sample, bool)
}

// AffectHandler serves the latest valence/arousal estimate.
type AffectHandler struct {
	source LatestSampler
}

// NewAffectHandler creates a new affect handler.
func NewAffectHandler(source LatestSampler) *AffectHandler {
	return &AffectHandler{source: source}
}

// HandleGetAffect handles GET /v1/va. Before the first sample it answers
// with a zero sample and an empty version.
func (h *AffectHandler) HandleGetAffect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s, ok := h.source.Latest()
	if !ok {
		s = model.Sample{}
	}
	writeJSON(w, http.StatusOK, s)
}
