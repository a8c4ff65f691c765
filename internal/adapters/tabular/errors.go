package tabular

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIngestion is the kind behind every IngestionError.
	ErrIngestion = errors.New("roster ingestion failed")
	// ErrUnsupportedFormat is returned for unknown file formats.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// IngestionError rejects an uploaded roster as a whole.
type IngestionError struct {
	Reason  string
	Missing []string
	Err     error
}

func (e *IngestionError) Error() string {
	var b strings.Builder
	b.WriteString("ingestion: ")
	b.WriteString(e.Reason)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is matches ErrIngestion so callers can errors.Is any ingestion failure.
func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }

func (e *IngestionError) Unwrap() error { return e.Err }
