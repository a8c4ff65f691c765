package loadcheck

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/rosterlens/internal/adapters/tabular"
	"github.com/okian/rosterlens/internal/domain/export"
	"github.com/okian/rosterlens/internal/stubserver"
	"github.com/okian/rosterlens/pkg/logger"
)

var (
	firstNames = []string{"Asha", "Ben", "Chen", "Dana", "Emeka", "Farah", "Gio", "Hana", "Ivan", "Jun", "Kemi", "Luis"}
	lastNames  = []string{"Rao", "Okafor", "Li", "Silva", "Novak", "Haddad", "Kim", "Moreau", "Patel", "Sato"}
)

// Student is one generated roster row.
type Student struct {
	Name       string
	RollNumber string
	Username   string
	Email      string
}

// Generate builds a deterministic roster for cfg. Ghost, blank and repeated
// usernames are spread through it at the configured intervals.
func Generate(ctx context.Context, cfg *Config) []Student {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible rosters
	// stable namespace so the same seed yields the same usernames
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("rosterlens-loadcheck-%d", cfg.Seed)))

	students := make([]Student, cfg.Students)
	for i := range students {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		id := uuid.NewSHA1(ns, []byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)}).String()[:8]

		s := Student{
			Name:       first + " " + last,
			RollNumber: fmt.Sprintf("R%05d", i+1),
			Email:      strings.ToLower(first) + "." + id + "@example.edu",
		}
		n := i + 1
		switch {
		case every(n, cfg.BlankEvery):
		case every(n, cfg.GhostEvery):
			s.Username = stubserver.GhostPrefix + id
		case every(n, cfg.RepeatEvery) && i > 0:
			s.Username = strings.ToUpper(students[rng.Intn(i)].Username)
		default:
			s.Username = strings.ToLower(first) + "_" + id
		}
		students[i] = s
	}

	logger.Get().Info(ctx, "generated roster", logger.Int("students", len(students)), logger.Int64("seed", cfg.Seed))
	return students
}

func every(n, k int) bool { return k > 0 && n%k == 0 }

// RosterCSV renders students as an upload body.
func RosterCSV(students []Student) ([]byte, error) {
	t := export.Table{Header: []string{
		tabular.ColName, tabular.ColRollNumber, tabular.ColUsername, tabular.ColEmail,
	}}
	for _, s := range students {
		t.Rows = append(t.Rows, []string{s.Name, s.RollNumber, s.Username, s.Email})
	}
	var buf bytes.Buffer
	if err := tabular.WriteTable(&buf, t, tabular.FormatCSV); err != nil {
		return nil, fmt.Errorf("render roster: %w", err)
	}
	return buf.Bytes(), nil
}
