package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

// MemoryStore is the in-memory Store.
//
// The roster, its generation and the selection sit behind one RWMutex. The
// displayed view is published through an atomic pointer so readers never
// take the lock and never see a view mixed between two generations.
type MemoryStore struct {
	mu         sync.RWMutex
	generation uint64
	records    []model.StudentRecord
	enrichedAt time.Time
	selection  []int

	view atomic.Pointer[View]

	logger logger.Logger
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store at generation 0 with an empty view.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.view.Store(&View{PublishedAt: s.now()})
	return s
}

func (s *MemoryStore) ReplaceRoster(ctx context.Context, records []model.StudentRecord) uint64 {
	start := time.Now()
	defer func() { observe("replace", start) }()

	recs := model.CloneRecords(records)
	for i := range recs {
		recs[i].Row = i
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.records = recs
	s.enrichedAt = time.Time{}
	s.selection = nil
	s.view.Store(&View{Generation: gen, Records: model.CloneRecords(recs), PublishedAt: s.now()})
	s.mu.Unlock()

	metrics.UpdateRosterRecords(len(recs), 0)
	metrics.RecordViewPublished(len(recs))
	s.logger.Info(ctx, "roster replaced", logger.Uint64("generation", gen), logger.Int("records", len(recs)))
	return gen
}

func (s *MemoryStore) Snapshot(_ context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Generation: s.generation,
		Records:    model.CloneRecords(s.records),
		EnrichedAt: s.enrichedAt,
	}
}

func (s *MemoryStore) MergeOutcome(ctx context.Context, row int, o model.Outcome, generation uint64) bool {
	start := time.Now()
	defer func() { observe("merge", start) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		metrics.RecordStaleMergeDropped()
		s.logger.Debug(ctx, "dropping stale merge",
			logger.Uint64("generation", generation), logger.Uint64("current", s.generation), logger.Int("row", row))
		return false
	}
	if row < 0 || row >= len(s.records) {
		metrics.RecordErrorByComponent("repository", "row_out_of_range")
		return false
	}
	if !s.records[row].Eligible() {
		return false
	}
	s.records[row].Apply(o)
	return true
}

func (s *MemoryStore) MarkEnriched(_ context.Context, generation uint64, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}
	s.enrichedAt = at
	valid := 0
	for _, r := range s.records {
		if r.ProfileFound {
			valid++
		}
	}
	metrics.UpdateRosterRecords(len(s.records), valid)
	return true
}

func (s *MemoryStore) PublishView(ctx context.Context, v View) bool {
	start := time.Now()
	defer func() { observe("publish", start) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v.Generation != s.generation {
		return false
	}
	for _, r := range v.Records {
		if !s.inRoster(r) {
			s.logger.Warn(ctx, "rejecting view with foreign record", logger.Int("row", r.Row))
			return false
		}
	}
	v.Records = model.CloneRecords(v.Records)
	if v.PublishedAt.IsZero() {
		v.PublishedAt = s.now()
	}
	s.view.Store(&v)
	metrics.RecordViewPublished(len(v.Records))
	return true
}

// inRoster checks that r points at a roster row with the same identity.
// Callers hold s.mu.
func (s *MemoryStore) inRoster(r model.StudentRecord) bool {
	if r.Row < 0 || r.Row >= len(s.records) {
		return false
	}
	cur := s.records[r.Row]
	return cur.Name == r.Name && cur.Username == r.Username && cur.RollNumber == r.RollNumber
}

func (s *MemoryStore) View(_ context.Context) View {
	v := s.view.Load()
	out := *v
	out.Records = model.CloneRecords(v.Records)
	return out
}

func (s *MemoryStore) Select(_ context.Context, generation uint64, rows []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return fmt.Errorf("%w: selection made against %d, current is %d", ErrStaleGeneration, generation, s.generation)
	}
	seen := make(map[int]bool, len(rows))
	sel := make([]int, 0, len(rows))
	for _, row := range rows {
		if row < 0 || row >= len(s.records) {
			return fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
		}
		if !seen[row] {
			seen[row] = true
			sel = append(sel, row)
		}
	}
	s.selection = sel
	return nil
}

func (s *MemoryStore) Selection(_ context.Context) []model.StudentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.StudentRecord, len(s.selection))
	for i, row := range s.selection {
		out[i] = s.records[row].Clone()
	}
	return out
}

func (s *MemoryStore) Generation(_ context.Context) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}
