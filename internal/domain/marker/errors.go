package marker

import "errors"

// Sentinel kinds for marker table errors.
var (
	ErrCodeNotFound  = errors.New("marker code not found")
	ErrCodeCollision = errors.New("marker code collision")
	ErrInvalidTable  = errors.New("invalid marker table")
	ErrUnknownTable  = errors.New("unknown marker table")
)
