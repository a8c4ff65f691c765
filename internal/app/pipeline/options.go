package pipeline

import (
	"time"

	"github.com/okian/rosterlens/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithWorkers sets how many fetches may run at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBatchTimeout bounds the whole batch. Zero means no deadline.
func WithBatchTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.batchTimeout = d
		}
	}
}

// WithCoalescing sends one fetch per distinct username instead of one per row.
func WithCoalescing(on bool) Option {
	return func(p *Pipeline) {
		p.coalesce = on
	}
}

// WithProgress sets the progress sink.
func WithProgress(s Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
