package dispatch

import "errors"

// Sentinel kinds for dispatcher errors.
var (
	ErrNotConfigured = errors.New("dispatcher not configured")
)
