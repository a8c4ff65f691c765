// Package pipeline runs one enrichment batch over a roster generation.
//
// A batch moves through Idle, Dispatching, Awaiting, Merging and Done. Fetches
// run on a worker pool; a single coordinator goroutine merges their results
// into the store, so merges never race each other. Every write is tagged with
// the batch generation and a newer roster silently supersedes the batch.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/rosterlens/internal/adapters/mq/queue"
	"github.com/okian/rosterlens/internal/adapters/mq/worker"
	"github.com/okian/rosterlens/internal/adapters/repository"
	"github.com/okian/rosterlens/internal/domain/dedupe"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

// Status lines shown alongside the percentage.
const (
	StatusFetching   = "Fetching LeetCode data..."
	StatusPublishing = "Publishing results..."
	StatusDone       = "Done"
)

// Sink receives progress observations in the order they happen.
type Sink interface {
	Publish(p model.Progress)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(model.Progress)

// Publish calls f(p).
func (f SinkFunc) Publish(p model.Progress) { f(p) }

// Batch is the input to one run. Records come from a store snapshot so each
// carries its roster Row.
type Batch struct {
	ID         string
	Generation uint64
	Records    []model.StudentRecord
}

// Result summarises a finished run.
type Result struct {
	BatchID    string
	Generation uint64
	State      model.BatchState
	Eligible   int // records with a username
	Lookups    int // distinct fetches dispatched
	Found      int
	NotFound   int
	TimedOut   int // rows normalised to not-found after the batch deadline
	Superseded bool
	Duration   time.Duration
}

// Pipeline wires the store, the fetcher and the worker pool together.
type Pipeline struct {
	store        repository.Store
	fetcher      worker.Fetcher
	workers      int
	batchTimeout time.Duration
	coalesce     bool
	sink         Sink
	logger       logger.Logger
	now          func() time.Time
}

// New creates a pipeline merging into store with profiles from fetcher.
func New(store repository.Store, fetcher worker.Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		fetcher: fetcher,
		workers: worker.DefaultWorkerCount,
		sink:    SinkFunc(func(model.Progress) {}),
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	return p
}

// Run executes the batch to completion. A started batch always ends in Done
// unless a newer generation superseded it, in which case nothing is
// published and Result.Superseded is set.
func (p *Pipeline) Run(ctx context.Context, b Batch) Result {
	start := p.now()
	res := Result{BatchID: b.ID, Generation: b.Generation, State: model.StateDispatching}
	metrics.RecordBatchStarted()

	jobs, eligible := p.plan(ctx, b)
	res.Eligible, res.Lookups = eligible, len(jobs)

	log := p.logger
	log.Info(ctx, "batch started",
		logger.String("batch_id", b.ID),
		logger.Uint64("generation", b.Generation),
		logger.Int("records", len(b.Records)),
		logger.Int("eligible", eligible),
		logger.Int("lookups", len(jobs)),
	)

	tr := &tracker{sink: p.sink, gen: b.Generation, batchID: b.ID, total: eligible, now: p.now}
	tr.report(model.StateDispatching, model.ProgressParsed, StatusFetching)

	if eligible > 0 {
		if !p.dispatch(ctx, b, jobs, tr, &res) {
			return p.superseded(ctx, res, start)
		}
	}

	if eligible > 0 {
		tr.report(model.StateMerging, model.MergePercent(eligible, eligible), StatusPublishing)
	}
	if !p.publish(ctx, b.Generation) {
		return p.superseded(ctx, res, start)
	}

	res.State = model.StateDone
	res.Duration = p.now().Sub(start)
	tr.report(model.StateDone, model.ProgressDone, StatusDone)
	metrics.UpdateBatchProgress(model.ProgressDone)
	metrics.RecordBatchCompleted(float64(res.Duration.Milliseconds()))
	log.Info(ctx, "batch done",
		logger.String("batch_id", b.ID),
		logger.Uint64("generation", b.Generation),
		logger.Int("found", res.Found),
		logger.Int("not_found", res.NotFound),
		logger.Int("timed_out", res.TimedOut),
		logger.Duration("duration", res.Duration),
	)
	return res
}

// plan turns eligible records into fetch jobs in roster order. With
// coalescing on, rows sharing a username share one job.
func (p *Pipeline) plan(ctx context.Context, b Batch) ([]queue.Job, int) {
	var (
		jobs     []queue.Job
		eligible int
	)
	if !p.coalesce {
		for _, r := range b.Records {
			if !r.Eligible() {
				continue
			}
			eligible++
			jobs = append(jobs, queue.Job{Generation: b.Generation, BatchID: b.ID, Username: r.Username, Rows: []int{r.Row}})
		}
		return jobs, eligible
	}

	c := dedupe.NewCoalescer(dedupe.WithFoldCase(true))
	var first []string
	for _, r := range b.Records {
		if !r.Eligible() {
			continue
		}
		eligible++
		if !c.SeenAndRecord(ctx, r.Username, r.Row) {
			first = append(first, r.Username)
		}
	}
	for _, u := range first {
		jobs = append(jobs, queue.Job{Generation: b.Generation, BatchID: b.ID, Username: u, Rows: c.Rows(ctx, u)})
	}
	return jobs, eligible
}

// dispatch runs the fetches and merges every result. It returns false once
// the batch generation is found stale.
func (p *Pipeline) dispatch(ctx context.Context, b Batch, jobs []queue.Job, tr *tracker, res *Result) bool {
	var (
		bctx   context.Context
		cancel context.CancelFunc
	)
	if p.batchTimeout > 0 {
		bctx, cancel = context.WithTimeout(ctx, p.batchTimeout)
	} else {
		bctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	pending := make(map[int]string, res.Eligible)
	for _, j := range jobs {
		for _, row := range j.Rows {
			pending[row] = j.Username
		}
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs)))
	for _, j := range jobs {
		if !q.Enqueue(bctx, j) {
			p.logger.Warn(ctx, "job not queued", logger.String("username", j.Username))
		}
	}
	_ = q.Close()

	results := make(chan worker.Result, len(jobs))
	pool := worker.NewPool(min(p.workers, len(jobs)), q, p.fetcher, results, worker.WithLogger(p.logger))
	go func() {
		_ = pool.Run(bctx)
		close(results)
	}()
	tr.report(model.StateAwaiting, model.ProgressParsed, fmt.Sprintf("%s (0/%d)", StatusFetching, res.Eligible))

	stale := false
	for r := range results {
		if stale {
			continue
		}
		for _, row := range r.Job.Rows {
			if !p.merge(ctx, row, r.Outcome, b.Generation, res) {
				stale = true
				cancel()
				break
			}
			delete(pending, row)
			tr.merged(StatusFetching)
		}
	}
	if stale {
		return false
	}

	// Deadline hit or caller gave up: the rows still waiting become not-found
	// so the batch can finish.
	rows := make([]int, 0, len(pending))
	for row := range pending {
		rows = append(rows, row)
	}
	slices.Sort(rows)
	for _, row := range rows {
		if !p.merge(ctx, row, model.NotFound(pending[row]), b.Generation, res) {
			return false
		}
		res.TimedOut++
		tr.merged(StatusFetching)
	}
	if len(rows) > 0 {
		p.logger.Warn(ctx, "batch cut short",
			logger.String("batch_id", b.ID),
			logger.Int("unfinished", len(rows)),
			logger.Duration("timeout", p.batchTimeout),
		)
	}
	return true
}

// merge writes one outcome and reports false when the generation is stale.
func (p *Pipeline) merge(ctx context.Context, row int, o model.Outcome, gen uint64, res *Result) bool {
	if !p.store.MergeOutcome(ctx, row, o, gen) {
		if p.store.Generation(ctx) != gen {
			return false
		}
		// row vanished or lost its username; count it and move on
		p.logger.Warn(ctx, "merge refused", logger.Int("row", row), logger.String("username", o.Username))
	}
	if o.Found {
		res.Found++
	} else {
		res.NotFound++
	}
	return true
}

// publish stamps the batch and swaps in the unfiltered view.
func (p *Pipeline) publish(ctx context.Context, gen uint64) bool {
	if !p.store.MarkEnriched(ctx, gen, p.now()) {
		return false
	}
	snap := p.store.Snapshot(ctx)
	if snap.Generation != gen {
		return false
	}
	return p.store.PublishView(ctx, repository.View{Generation: gen, Records: snap.Records})
}

func (p *Pipeline) superseded(ctx context.Context, res Result, start time.Time) Result {
	res.Superseded = true
	res.Duration = p.now().Sub(start)
	metrics.RecordBatchSuperseded()
	p.logger.Info(ctx, "batch superseded",
		logger.String("batch_id", res.BatchID),
		logger.Uint64("generation", res.Generation),
		logger.Uint64("current", p.store.Generation(ctx)),
	)
	return res
}

// tracker turns merge counts into progress observations.
type tracker struct {
	sink      Sink
	gen       uint64
	batchID   string
	total     int
	completed int
	now       func() time.Time
}

func (t *tracker) merged(status string) {
	t.completed++
	pct := model.MergePercent(t.completed, t.total)
	metrics.UpdateBatchProgress(pct)
	t.report(model.StateAwaiting, pct, fmt.Sprintf("%s (%d/%d)", status, t.completed, t.total))
}

func (t *tracker) report(state model.BatchState, pct int, status string) {
	t.sink.Publish(model.Progress{
		Generation: t.gen,
		BatchID:    t.batchID,
		Percent:    pct,
		Status:     status,
		State:      state,
		Completed:  t.completed,
		Total:      t.total,
		UpdatedAt:  t.now(),
	})
}
