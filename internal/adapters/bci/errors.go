package bci

import "errors"

// Sentinel kinds for BCI ingestion errors.
var (
	ErrConnect = errors.New("bci connect failed")
	ErrDecode  = errors.New("bci frame decode failed")
	ErrReceive = errors.New("bci receive failed")
)
