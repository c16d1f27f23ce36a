// Package model contains domain models passed between layers.
package model

import "time"

// Stage is the active phase of an experiment session.
type Stage int

// Stages in the order a session walks through them.
const (
	StageResting Stage = iota
	StageVideoPlayback
	StageValenceRating
	StageArousalRating
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageResting:
		return "resting"
	case StageVideoPlayback:
		return "video_playback"
	case StageValenceRating:
		return "valence_rating"
	case StageArousalRating:
		return "arousal_rating"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// IsRating reports whether rating input is accepted in s.
func (s Stage) IsRating() bool {
	return s == StageValenceRating || s == StageArousalRating
}

// Trial defines one video presentation.
type Trial struct {
	Media    string `koanf:"media" json:"media"`       // media file, relative to the media dir
	Category string `koanf:"category" json:"category"` // emotion category label, also a marker name
}

// TrialRecord is the outcome of one completed trial.
type TrialRecord struct {
	SessionID   string
	Index       int
	Media       string
	Category    string
	Valence     int // 1..5
	Arousal     int // 1..5
	StartedAt   time.Time
	CompletedAt time.Time
}

// MarkerRecord is one marker confirmed sent by the authoritative transport.
type MarkerRecord struct {
	SessionID string
	Seq       int64
	Name      string
	Code      uint8
	SentAt    time.Time
}

// Sample is one valence/arousal estimate from the BCI classifier.
type Sample struct {
	TS      float64 `json:"ts"`
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
	Version string  `json:"version"`
}

// Reaction is an avatar reaction chosen from a valence/arousal quadrant.
type Reaction int

// Reactions the avatar can play.
const (
	ReactionHappy Reaction = iota
	ReactionAngry
	ReactionSad
)

func (r Reaction) String() string {
	switch r {
	case ReactionHappy:
		return "happy"
	case ReactionAngry:
		return "angry"
	case ReactionSad:
		return "sad"
	default:
		return "unknown"
	}
}
