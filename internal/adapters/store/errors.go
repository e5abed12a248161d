package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed      = errors.New("store closed")
	ErrUnavailable = errors.New("store unavailable")
)
