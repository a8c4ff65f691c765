package repository

import "errors"

// Sentinel kinds for roster store errors.
var (
	ErrStaleGeneration = errors.New("roster generation is stale")
	ErrRowOutOfRange   = errors.New("row is not in the roster")
)
