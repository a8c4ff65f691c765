// Package worker runs profile fetches concurrently off a job queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rosterlens/internal/adapters/mq/queue"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

// DefaultWorkerCount bounds concurrent upstream requests when no count is given.
const DefaultWorkerCount = 5

// Fetcher resolves a username to an enrichment outcome. It never fails; every
// upstream problem is already folded into a not-found outcome.
type Fetcher interface {
	Fetch(ctx context.Context, username string) model.Outcome
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Result pairs a job with the outcome fetched for it.
type Result struct {
	Job     queue.Job
	Outcome model.Outcome
	Latency time.Duration
}

// Worker fetches profiles for queued jobs.
type Worker interface {
	// Run processes jobs until the queue drains, the worker is shut down or
	// ctx is canceled. It returns ctx.Err() only in the last case.
	Run(ctx context.Context) error

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker and delivers results on a channel.
type InMemoryWorker struct {
	queue   Queue
	fetcher Fetcher
	results chan<- Result
	name    string
	timeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, f Fetcher, results chan<- Result, opts ...Option) *InMemoryWorker {
	s := newSettings(opts)
	return &InMemoryWorker{
		queue:    q,
		fetcher:  f,
		results:  results,
		name:     s.name,
		timeout:  s.jobTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   s.logger.Named(s.name),
	}
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.shutdown:
			return nil
		case job, ok := <-jobs:
			if !ok {
				// the dequeue channel also closes on cancellation
				return ctx.Err()
			}
			if err := w.process(ctx, job); err != nil {
				return err
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process fetches one job and hands the result to the coordinator.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	fctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := w.fetcher.Fetch(fctx, job.Username)
	latency := time.Since(start)
	metrics.RecordWorkerProcessingLatency(float64(latency.Milliseconds()))

	w.logger.Debug(ctx, "profile fetched",
		logger.String("username", job.Username),
		logger.Bool("found", outcome.Found),
		logger.Int("rows", len(job.Rows)),
		logger.Duration("latency", latency),
	)

	select {
	case w.results <- Result{Job: job, Outcome: outcome, Latency: latency}:
		return nil
	case <-ctx.Done():
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "result_dropped")
		return ctx.Err()
	}
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers that deliver to results.
// Options apply to every worker.
func NewPool(workerCount int, q Queue, f Fetcher, results chan<- Result, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, f, results, workerOpts...)
	}
	pool.logger = newSettings(opts).logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Run starts every worker and blocks until all of them return. The first
// worker to stop on a canceled context cancels the rest.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	err := g.Wait()
	if err != nil {
		p.logger.Debug(ctx, "worker pool stopped early", logger.Error(err))
	}
	return err
}

// Shutdown closes the queue and stops every worker, waiting up to ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return err
		}
	}
	return nil
}
