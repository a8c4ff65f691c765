package api

import (
	"errors"
	"net/http"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// KindError tags an error with the operation that failed and its kind.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

// Is matches the kind.
func (e *KindError) Is(target error) bool { return e.Kind != nil && target == e.Kind }

func (e *KindError) Unwrap() error { return e.Err }

// WrapKind attaches kind and op to err.
func WrapKind(op string, kind, err error) error { return &KindError{Op: op, Kind: kind, Err: err} }

// Wrap attaches op to err.
func Wrap(op string, err error) error { return &KindError{Op: op, Err: err} }

// statusKinds names the failure classes the roster API answers with.
var statusKinds = map[int]string{ //nolint:gochecknoglobals // read-only table
	http.StatusBadRequest:            "bad_request",
	http.StatusNotFound:              "not_found",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "too_large",
	http.StatusUnprocessableEntity:   "schema",
	http.StatusServiceUnavailable:    "unavailable",
}

// statusKind classifies a response status for error metrics. Successful
// statuses have no kind.
func statusKind(status int) string {
	if kind, ok := statusKinds[status]; ok {
		return kind
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status >= http.StatusBadRequest:
		return "client_error"
	}
	return ""
}
