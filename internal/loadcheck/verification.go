package loadcheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/stubserver"
	"github.com/okian/rosterlens/pkg/logger"
)

// ErrMismatch reports an enriched roster that disagrees with the profile table.
var ErrMismatch = errors.New("enriched roster does not match expected profiles")

const maxReported = 10

// Verify checks every record against the generated students and the stub
// profile table: roster order kept, counts merged as a unit and rows without
// a username left untouched.
func Verify(ctx context.Context, students []Student, records []model.StudentRecord, stats *Stats) error {
	log := logger.Get()
	if len(records) != len(students) {
		return fmt.Errorf("%w: %d records for %d students", ErrMismatch, len(records), len(students))
	}

	var problems []string
	for i, r := range records {
		s := students[i]
		if r.Row != i || r.Username != s.Username || r.RollNumber != s.RollNumber {
			problems = append(problems, fmt.Sprintf("row %d: got %q/%q at row %d", i, r.RollNumber, r.Username, r.Row))
			continue
		}
		if s.Username == "" {
			if r.ProfileFound || r.ProblemsSolved != 0 {
				problems = append(problems, fmt.Sprintf("row %d: enriched without a username", i))
			}
			continue
		}
		stats.WithUsername++

		want := stubserver.Profile(s.Username)
		if want.Found {
			stats.Found++
		} else {
			stats.NotFound++
		}
		if r.ProfileFound != want.Found || r.Easy != want.Easy || r.Medium != want.Medium ||
			r.Hard != want.Hard || r.ProblemsSolved != want.TotalSolved {
			problems = append(problems, fmt.Sprintf("row %d (%s): got %d/%d/%d found=%t, want %d/%d/%d found=%t",
				i, s.Username, r.Easy, r.Medium, r.Hard, r.ProfileFound, want.Easy, want.Medium, want.Hard, want.Found))
		}
	}

	stats.Mismatches = len(problems)
	for i, p := range problems {
		if i == maxReported {
			log.Warn(ctx, "more mismatches omitted", logger.Int("omitted", len(problems)-maxReported))
			break
		}
		log.Warn(ctx, "mismatch", logger.String("detail", p))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %d rows", ErrMismatch, len(problems))
	}
	return nil
}

// VerifyTop checks a top-n view: at most n records, solved counts not
// increasing.
func VerifyTop(records []model.StudentRecord, n int) error {
	if len(records) > n {
		return fmt.Errorf("%w: top %d returned %d records", ErrMismatch, n, len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].ProblemsSolved > records[i-1].ProblemsSolved {
			return fmt.Errorf("%w: top view not ordered at %d", ErrMismatch, i)
		}
	}
	return nil
}
