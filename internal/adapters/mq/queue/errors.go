package queue

import "errors"

// ErrClosed is returned by Enqueue once the queue has been closed.
var ErrClosed = errors.New("sample queue closed")
