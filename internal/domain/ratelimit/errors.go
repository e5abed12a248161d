package ratelimit

import "errors"

// Sentinel kinds for rate-limit configuration errors.
var (
	ErrInvalidQuota   = errors.New("invalid quota")
	ErrInvalidPattern = errors.New("invalid path pattern")
)
