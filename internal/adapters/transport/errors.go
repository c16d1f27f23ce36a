package transport

import "errors"

// Sentinel kinds for transport errors.
var (
	ErrTransport    = errors.New("marker transport failed")
	ErrClosed       = errors.New("sender closed")
	ErrNotConnected = errors.New("sender not connected")
)
