package leetcode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound      = errors.New("leetcode user not found")
	ErrMalformedResponse = errors.New("malformed leetcode response")
)

// StatusError is a non-200 reply.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("leetcode: unexpected status %d", e.Code)
}

// TransportError wraps a failed round trip.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "leetcode: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	var te *TransportError
	return errors.As(err, &te) && !errors.Is(err, context.Canceled)
}

func errorType(err error) string {
	var se *StatusError
	var te *TransportError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.As(err, &te):
		return "transport"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	}
	return "other"
}
