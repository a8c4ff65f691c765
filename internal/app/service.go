// Package service provides the core business service behind the HTTP API
// and the CLI: roster ingestion, background enrichment and view derivation.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rosterlens/internal/adapters/leetcode"
	"github.com/okian/rosterlens/internal/adapters/repository"
	"github.com/okian/rosterlens/internal/adapters/tabular"
	"github.com/okian/rosterlens/internal/app/pipeline"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
	"github.com/okian/rosterlens/internal/domain/view"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

// Service owns the roster store, the enrichment pipeline and the progress
// tracker.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	fetcher  leetcode.Fetcher
	pipeline *pipeline.Pipeline
	tracker  *Tracker
	bins     view.Bins

	// Configuration
	workerCount  int
	topN         int
	batchTimeout time.Duration
	coalesce     bool
	cacheOn      bool
	listeners    []pipeline.Sink

	// State
	started     bool
	baseCtx     context.Context
	stop        context.CancelFunc
	cancelBatch context.CancelFunc
	batchGen    uint64 // generation of the batch cancelBatch belongs to
	batches     sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFetcher sets the profile fetcher. The default talks to the public
// LeetCode endpoint.
func WithFetcher(f leetcode.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithWorkerCount sets the number of concurrent fetches per batch.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithTopN sets the size of the "top" filter when a query gives none.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithBatchTimeout bounds each batch. Zero disables the deadline.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchTimeout = d
		}
	}
}

// WithCoalescing fetches each distinct username once per batch.
func WithCoalescing(on bool) Option {
	return func(s *Service) {
		s.coalesce = on
	}
}

// WithBins sets the distribution buckets.
func WithBins(b view.Bins) Option {
	return func(s *Service) {
		if len(b.Ranges()) > 0 {
			s.bins = b
		}
	}
}

// WithCacheEnabled marks the fetcher as cache-backed in stats.
func WithCacheEnabled(on bool) Option {
	return func(s *Service) {
		s.cacheOn = on
	}
}

// WithProgressListener receives every accepted progress observation.
func WithProgressListener(l pipeline.Sink) Option {
	return func(s *Service) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Components are ready to use immediately;
// Start only provides the lifetime for background batches.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 5,
		topN:        10,
		baseCtx:     context.Background(),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithLogger(s.logger.Named("store")))
	}
	if s.fetcher == nil {
		s.fetcher = leetcode.NewClient(leetcode.WithLogger(s.logger.Named("leetcode")))
	}
	if len(s.bins.Ranges()) == 0 {
		s.bins = view.DefaultBins()
	}

	s.tracker = NewTracker(func() uint64 { return s.store.Generation(context.Background()) }, s.listeners...)
	s.pipeline = pipeline.New(s.store, s.fetcher,
		pipeline.WithWorkers(s.workerCount),
		pipeline.WithBatchTimeout(s.batchTimeout),
		pipeline.WithCoalescing(s.coalesce),
		pipeline.WithProgress(s.tracker),
		pipeline.WithLogger(s.logger),
	)
	return s
}

// Start binds background batches to ctx.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.baseCtx, s.stop = context.WithCancel(ctx)
	s.started = true
	metrics.UpdateWorkerCount(s.workerCount)
	s.logger.Info(ctx, "roster service started",
		logger.Int("workers", s.workerCount),
		logger.Duration("batch_timeout", s.batchTimeout),
		logger.Bool("coalesce", s.coalesce),
		logger.Bool("cache", s.cacheOn),
	)
	return nil
}

// Stop cancels the running batch and waits for it to wind down.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.stop()
	s.started = false
	s.mu.Unlock()

	s.batches.Wait()
	s.logger.Info(context.Background(), "roster service stopped")
}

// Upload ingests a roster, installs it as a new generation and starts
// enriching it in the background. A malformed file leaves the current roster
// untouched.
func (s *Service) Upload(ctx context.Context, r io.Reader, format tabular.Format) (types.UploadResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.UploadResult{}, ErrNotStarted
	}

	batch, err := s.install(ctx, r, format)
	if err != nil {
		return types.UploadResult{}, err
	}

	res := types.UploadResult{
		Generation: batch.Generation,
		BatchID:    batch.ID,
		Rows:       len(batch.Records),
		Eligible:   eligible(batch.Records),
	}

	// Installs and batch starts can interleave between concurrent uploads;
	// only a newer generation may cancel the running batch.
	s.mu.Lock()
	if batch.Generation < s.batchGen {
		s.mu.Unlock()
		metrics.RecordBatchSuperseded()
		s.logger.Info(ctx, "upload superseded before its batch started",
			logger.Uint64("generation", batch.Generation),
			logger.Uint64("current", s.batchGen),
		)
		return res, nil
	}
	if s.cancelBatch != nil {
		s.cancelBatch()
	}
	bctx, cancel := context.WithCancel(s.baseCtx)
	s.cancelBatch = cancel
	s.batchGen = batch.Generation
	s.batches.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.batches.Done()
		defer cancel()
		s.pipeline.Run(bctx, batch)
	}()

	return res, nil
}

// Enrich ingests a roster and runs its batch to completion before returning.
func (s *Service) Enrich(ctx context.Context, r io.Reader, format tabular.Format) (pipeline.Result, error) {
	batch, err := s.install(ctx, r, format)
	if err != nil {
		return pipeline.Result{}, err
	}
	return s.pipeline.Run(ctx, batch), nil
}

// install parses and stores a roster, returning the batch to run over it.
func (s *Service) install(ctx context.Context, r io.Reader, format tabular.Format) (pipeline.Batch, error) {
	records, err := tabular.ReadRoster(r, format)
	if err != nil {
		reason := "read"
		var ie *tabular.IngestionError
		if errors.As(err, &ie) && len(ie.Missing) > 0 {
			reason = "schema"
		}
		metrics.RecordUploadFailed(reason)
		s.fail(ctx, err)
		return pipeline.Batch{}, fmt.Errorf("upload: %w", err)
	}

	gen := s.store.ReplaceRoster(ctx, records)
	batch := pipeline.Batch{
		ID:         uuid.NewString(),
		Generation: gen,
		Records:    s.store.Snapshot(ctx).Records,
	}
	metrics.RecordRowsIngested(len(records))
	s.tracker.Publish(model.Progress{
		Generation: gen,
		BatchID:    batch.ID,
		Percent:    model.ProgressRead,
		Status:     "Reading roster...",
		State:      model.StateIdle,
		Total:      eligible(records),
		UpdatedAt:  time.Now(),
	})
	s.logger.Info(ctx, "roster accepted",
		logger.Uint64("generation", gen),
		logger.String("batch_id", batch.ID),
		logger.Int("rows", len(records)),
	)
	return batch, nil
}

// fail surfaces an ingestion error on the progress line unless a batch is
// still working on the current roster.
func (s *Service) fail(ctx context.Context, err error) {
	s.logger.Warn(ctx, "roster rejected", logger.Error(err))

	switch s.tracker.Latest().State {
	case model.StateIdle, model.StateDone, model.StateFailed:
	default:
		return
	}
	s.tracker.Publish(model.Progress{
		Generation: s.store.Generation(ctx),
		Status:     "Error: " + err.Error(),
		State:      model.StateFailed,
		UpdatedAt:  time.Now(),
	})
}

// Progress returns the latest progress of the current roster.
func (s *Service) Progress(_ context.Context) model.Progress {
	return s.tracker.Latest()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	snap := s.store.Snapshot(ctx)
	p := s.tracker.Latest()
	return types.Stats{
		Started:     started,
		Generation:  snap.Generation,
		Records:     len(snap.Records),
		Displayed:   len(s.store.View(ctx).Records),
		Selected:    len(s.store.Selection(ctx)),
		Progress:    p.Percent,
		State:       string(p.State),
		EnrichedAt:  snap.EnrichedAt,
		WorkerCount: s.workerCount,
		CacheOn:     s.cacheOn,
	}
}

func eligible(records []model.StudentRecord) int {
	n := 0
	for _, r := range records {
		if r.Eligible() {
			n++
		}
	}
	return n
}
