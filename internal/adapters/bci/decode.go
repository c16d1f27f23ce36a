package bci

import (
	"encoding/json"
	"fmt"

	"github.com/okian/markerrig/internal/domain/model"
)

type wireSample struct {
	TS      float64  `json:"ts"`
	Valence *float64 `json:"valence"`
	Arousal *float64 `json:"arousal"`
	Version string   `json:"version"`
}

// Decode parses one frame of the form
// {"ts": 1712.5, "valence": 0.61, "arousal": 0.42, "version": "va-v1"}.
// Valence and arousal are required; ts and version are not.
func Decode(frame []byte) (model.Sample, error) {
	var w wireSample
	if err := json.Unmarshal(frame, &w); err != nil {
		return model.Sample{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if w.Valence == nil || w.Arousal == nil {
		return model.Sample{}, fmt.Errorf("%w: missing valence or arousal", ErrDecode)
	}
	return model.Sample{TS: w.TS, Valence: *w.Valence, Arousal: *w.Arousal, Version: w.Version}, nil
}
