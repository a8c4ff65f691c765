package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/okian/rosterlens/internal/adapters/repository"
	"github.com/okian/rosterlens/internal/adapters/tabular"
	"github.com/okian/rosterlens/internal/domain/export"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
	"github.com/okian/rosterlens/internal/domain/view"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

// View returns the displayed view with every record at its latest state.
func (s *Service) View(ctx context.Context) repository.View {
	v := s.store.View(ctx)
	snap := s.store.Snapshot(ctx)
	v.Records = current(v, snap)
	return v
}

// ApplyView derives and publishes a new displayed view.
//
// Search and Filter rebuild the view from the whole roster; a query with only
// Sort reorders the view already on display. Sorting by the key already in
// effect without an explicit direction flips the direction. An empty query
// resets to the unfiltered roster.
func (s *Service) ApplyView(ctx context.Context, q types.ViewQuery) (repository.View, error) {
	if q == (types.ViewQuery{}) {
		return s.ResetView(ctx)
	}

	cur := s.store.View(ctx)
	snap := s.store.Snapshot(ctx)

	var (
		records []model.StudentRecord
		labels  []string
	)
	if q.Derives() {
		records = view.Search(snap.Records, q.Search)
		if strings.TrimSpace(q.Search) != "" {
			labels = append(labels, "search: "+strings.TrimSpace(q.Search))
		}
		n := q.N
		if n <= 0 {
			n = s.topN
		}
		filter, err := view.ParseFilter(q.Filter, n)
		if err != nil {
			return repository.View{}, err
		}
		records = filter(records)
		if name := strings.ToLower(strings.TrimSpace(q.Filter)); name != "" && name != view.FilterAll {
			if name == view.FilterTop {
				name = fmt.Sprintf("top %d", n)
			}
			labels = append(labels, "filter: "+name)
		}
	} else {
		records = current(cur, snap)
		if cur.Label != "" {
			labels = append(labels, cur.Label)
		}
	}

	var sortState types.SortState
	if q.Sort != "" {
		key, err := view.ParseSortKey(q.Sort)
		if err != nil {
			return repository.View{}, err
		}
		dir, err := nextDirection(cur.Sort, key, q.Direction)
		if err != nil {
			return repository.View{}, err
		}
		records = view.SortBy(records, key, dir)
		sortState = types.SortState{Key: string(key), Direction: string(dir)}
	}

	v := repository.View{
		Generation: snap.Generation,
		Records:    records,
		Sort:       sortState,
		Label:      strings.Join(labels, ", "),
	}
	if !s.store.PublishView(ctx, v) {
		return repository.View{}, ErrViewConflict
	}
	s.logger.Debug(ctx, "view published",
		logger.String("label", v.Label),
		logger.String("sort", sortState.Key),
		logger.Int("records", len(records)),
	)
	return s.store.View(ctx), nil
}

// nextDirection resolves the sort direction. An explicit direction wins;
// otherwise repeating the active key toggles and a new key starts ascending.
func nextDirection(active types.SortState, key view.SortKey, explicit string) (view.Direction, error) {
	if explicit != "" {
		return view.ParseDirection(explicit)
	}
	if active.Key == string(key) {
		return view.Direction(active.Direction).Toggle(), nil
	}
	return view.Asc, nil
}

// ResetView publishes the whole roster in roster order.
func (s *Service) ResetView(ctx context.Context) (repository.View, error) {
	snap := s.store.Snapshot(ctx)
	if !s.store.PublishView(ctx, repository.View{Generation: snap.Generation, Records: snap.Records}) {
		return repository.View{}, ErrViewConflict
	}
	return s.store.View(ctx), nil
}

// Distribution buckets the displayed view by problems solved.
func (s *Service) Distribution(ctx context.Context) []view.Bucket {
	return s.bins.Distribution(s.View(ctx).Records)
}

// Summary counts profile states over the displayed view.
func (s *Service) Summary(ctx context.Context) view.Summary {
	return view.Summarize(s.View(ctx).Records)
}

// Select replaces the comparison selection. A zero generation means the
// current one.
func (s *Service) Select(ctx context.Context, generation uint64, rows []int) error {
	if generation == 0 {
		generation = s.store.Generation(ctx)
	}
	return s.store.Select(ctx, generation, rows)
}

// Compare builds the difficulty comparison for the selected students.
func (s *Service) Compare(ctx context.Context) ([]view.Series, error) {
	return view.Compare(s.store.Selection(ctx))
}

// Export writes the records of scope through its projection. The displayed
// scope exports the view as shown and keeps any extra input columns; the
// invalid scope lists every roster record whose profile lookup failed.
func (s *Service) Export(ctx context.Context, w io.Writer, scope string, format tabular.Format) error {
	if s.store.Generation(ctx) == 0 {
		metrics.RecordExportFailure()
		return ErrNoRoster
	}
	proj, err := export.ForScope(scope)
	if err != nil {
		metrics.RecordExportFailure()
		return err
	}

	var records []model.StudentRecord
	switch proj.Name {
	case export.InvalidProfiles.Name:
		records = view.Where(s.store.Snapshot(ctx).Records, view.InvalidProfile)
	default:
		records = s.View(ctx).Records
		proj = proj.WithExtra(tabular.ExtraColumns(records)...)
	}
	table, err := proj.Project(records)
	if err != nil {
		metrics.RecordExportFailure()
		return fmt.Errorf("export %s: %w", proj.Name, err)
	}
	if err := tabular.WriteTable(w, table, format); err != nil {
		metrics.RecordExportFailure()
		return fmt.Errorf("export %s: %w", proj.Name, err)
	}
	metrics.RecordExport(proj.Name, string(format))
	s.logger.Info(ctx, "exported",
		logger.String("scope", proj.Name),
		logger.String("format", string(format)),
		logger.Int("rows", len(table.Rows)),
	)
	return nil
}

// current swaps each view record for its latest roster state so views
// published before enrichment finished still show fresh numbers.
func current(v repository.View, snap repository.Snapshot) []model.StudentRecord {
	if v.Generation != snap.Generation {
		return v.Records
	}
	out := make([]model.StudentRecord, 0, len(v.Records))
	for _, r := range v.Records {
		if r.Row >= 0 && r.Row < len(snap.Records) {
			out = append(out, snap.Records[r.Row])
		}
	}
	return out
}
