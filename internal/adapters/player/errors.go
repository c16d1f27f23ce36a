package player

import "errors"

// Sentinel kinds for player errors.
var (
	ErrNoCommand     = errors.New("empty player command")
	ErrMediaNotFound = errors.New("media not found")
	ErrBusy          = errors.New("playback already in progress")
)
