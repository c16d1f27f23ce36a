package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/markerrig/internal/domain/dedupe"
	"github.com/okian/markerrig/internal/domain/marker"
)

// RatingDependencies defines what the ratings handler needs.
type RatingDependencies interface {
	dedupe.Deduper
	Rate(n int) bool
}

// RatingsHandler lets a remote keypad submit ratings.
type RatingsHandler struct {
	deps RatingDependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingDependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// ratingRequest is the POST /ratings body. A keypad that retries should
// resend the same id so the rating is applied once.
type ratingRequest struct {
	ID    string `json:"id,omitempty"`
	Value *int   `json:"value"`
}

func (r ratingRequest) validate() error {
	if r.Value == nil {
		return errors.New("missing value")
	}
	if *r.Value < marker.MinRating || *r.Value > marker.MaxRating {
		return fmt.Errorf("value %d outside %d..%d", *r.Value, marker.MinRating, marker.MaxRating)
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Value     int    `json:"value"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostRating handles POST /ratings. A 202 means the session received
// the rating; the session still ignores it outside a rating stage.
func (h *RatingsHandler) HandlePostRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if req.ID != "" && h.deps.SeenAndRecord(r.Context(), req.ID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Value: *req.Value, Duplicate: true})
		return
	}
	if !h.deps.Rate(*req.Value) {
		// Not applied, so a retry with the same id must go through.
		if req.ID != "" {
			h.deps.Unrecord(r.Context(), req.ID)
		}
		writeError(w, http.StatusConflict, "not_accepting", NewKind(op, ErrNotAccepting))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Value: *req.Value})
}
