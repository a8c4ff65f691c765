package view

import "errors"

var (
	ErrUnknownFilter    = errors.New("unknown filter")
	ErrUnknownSortKey   = errors.New("unknown sort key")
	ErrUnknownDirection = errors.New("unknown sort direction")
	ErrInvalidBins      = errors.New("invalid distribution bins")
	ErrCompareEmpty     = errors.New("select at least one student to compare")
	ErrCompareTooMany   = errors.New("select no more than 5 students to compare")
)
