// Package repository holds the shared in-memory roster, the displayed view
// and the comparison selection.
package repository

import (
	"context"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
)

// Snapshot is an immutable copy of the roster.
type Snapshot struct {
	Generation uint64
	Records    []model.StudentRecord
	EnrichedAt time.Time
}

// View is a published, read-only ordering of a subset of the roster.
type View struct {
	Generation  uint64
	Records     []model.StudentRecord
	Sort        types.SortState
	Label       string // how the view was derived, e.g. "search: asha"
	PublishedAt time.Time
}

// Store provides read/write access to the roster state. Every write is tagged
// with the generation it was computed against; writes for a stale generation
// are dropped and reported as false.
type Store interface {
	// ReplaceRoster installs records as a new generation, clears the
	// selection and publishes the unfiltered view. Returns the generation.
	ReplaceRoster(ctx context.Context, records []model.StudentRecord) uint64

	// Snapshot returns a copy of the current roster.
	Snapshot(ctx context.Context) Snapshot

	// MergeOutcome writes an outcome into the record at row as one unit.
	MergeOutcome(ctx context.Context, row int, o model.Outcome, generation uint64) bool

	// MarkEnriched stamps the batch completion time.
	MarkEnriched(ctx context.Context, generation uint64, at time.Time) bool

	// PublishView atomically replaces the displayed view. Views that carry
	// records not in the roster are rejected.
	PublishView(ctx context.Context, v View) bool

	// View returns the displayed view.
	View(ctx context.Context) View

	// Select replaces the comparison selection with roster rows.
	Select(ctx context.Context, generation uint64, rows []int) error

	// Selection returns the selected records as they currently are.
	Selection(ctx context.Context) []model.StudentRecord

	// Generation returns the current roster generation.
	Generation(ctx context.Context) uint64

	// Count returns the number of records in the roster.
	Count(ctx context.Context) int
}
