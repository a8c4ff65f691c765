package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrViewConflict = errors.New("roster changed while deriving the view")
	ErrNoRoster     = errors.New("no roster loaded")
)
