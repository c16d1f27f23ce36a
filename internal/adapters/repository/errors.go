package repository

import "errors"

// Sentinel kinds for journal errors.
var (
	ErrNotFound      = errors.New("session not found")
	ErrClosed        = errors.New("journal closed")
	ErrInvalidRecord = errors.New("invalid journal record")
)
