package worker

import (
	"time"

	"github.com/okian/rosterlens/pkg/logger"
)

// settings is shared by a pool and the workers it builds.
type settings struct {
	name       string
	logger     logger.Logger
	jobTimeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{name: "worker", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a worker or pool.
type Option func(*settings)

// WithName sets the worker name used in logs. Pools override it per worker.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger; each worker names a child of it.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJobTimeout bounds a single fetch. Zero leaves the fetch bounded only by
// the run context and the fetcher's own timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}
