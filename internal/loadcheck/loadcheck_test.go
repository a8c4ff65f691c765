package loadcheck_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/rosterlens/internal/adapters/http/api"
	"github.com/okian/rosterlens/internal/adapters/leetcode"
	service "github.com/okian/rosterlens/internal/app"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/loadcheck"
	"github.com/okian/rosterlens/internal/stubserver"
	"github.com/okian/rosterlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

// newStack starts a stub profile server and a rosterlens API in front of it.
func newStack(ctx context.Context) (*httptest.Server, *stubserver.Server, func()) {
	stub := stubserver.New(stubserver.WithLatencyRange(time.Millisecond, 3*time.Millisecond))
	stubTS := httptest.NewServer(stub)

	svc := service.New(
		service.WithFetcher(leetcode.NewClient(leetcode.WithURL(stubTS.URL))),
		service.WithWorkerCount(4),
		service.WithCoalescing(true),
	)
	_ = svc.Start(ctx)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	apiTS := httptest.NewServer(mux)

	return apiTS, stub, func() {
		apiTS.Close()
		svc.Stop()
		stubTS.Close()
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := &loadcheck.Config{Students: 40, GhostEvery: 5, BlankEvery: 8, RepeatEvery: 9, Seed: 3}
		ctx := context.Background()

		Convey("When generating twice with the same seed", func() {
			a := loadcheck.Generate(ctx, cfg)
			b := loadcheck.Generate(ctx, cfg)

			Convey("Then the rosters are identical", func() {
				So(a, ShouldResemble, b)
				So(len(a), ShouldEqual, 40)
			})

			Convey("Then blanks and ghosts land on their intervals", func() {
				So(a[7].Username, ShouldBeBlank)
				So(a[4].Username, ShouldStartWith, stubserver.GhostPrefix)
				So(a[0].Username, ShouldNotBeBlank)
			})
		})

		Convey("When rendering the roster as csv", func() {
			body, err := loadcheck.RosterCSV(loadcheck.Generate(ctx, cfg))

			Convey("Then the header names the required columns", func() {
				So(err, ShouldBeNil)
				header := strings.SplitN(string(body), "\n", 2)[0]
				So(header, ShouldContainSubstring, "name")
				So(header, ShouldContainSubstring, "leetcode_username")
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given generated students", t, func() {
		ctx := context.Background()
		students := loadcheck.Generate(ctx, &loadcheck.Config{Students: 3, BlankEvery: 3, Seed: 1})

		correct := make([]model.StudentRecord, len(students))
		for i, s := range students {
			r := model.StudentRecord{Row: i, Name: s.Name, RollNumber: s.RollNumber, Username: s.Username}
			if s.Username != "" {
				r.Apply(stubserver.Profile(s.Username))
			}
			correct[i] = r
		}

		Convey("When the records match the profile table", func() {
			stats := &loadcheck.Stats{}
			err := loadcheck.Verify(ctx, students, correct, stats)

			Convey("Then verification passes", func() {
				So(err, ShouldBeNil)
				So(stats.WithUsername, ShouldEqual, 2)
				So(stats.Mismatches, ShouldEqual, 0)
			})
		})

		Convey("When a count is off", func() {
			bad := append([]model.StudentRecord(nil), correct...)
			bad[0].Easy++
			err := loadcheck.Verify(ctx, students, bad, &loadcheck.Stats{})

			Convey("Then the mismatch is reported", func() {
				So(errors.Is(err, loadcheck.ErrMismatch), ShouldBeTrue)
			})
		})

		Convey("When the top view is out of order", func() {
			err := loadcheck.VerifyTop([]model.StudentRecord{{ProblemsSolved: 1}, {ProblemsSolved: 5}}, 5)
			So(err, ShouldNotBeNil)
			So(loadcheck.VerifyTop([]model.StudentRecord{{ProblemsSolved: 5}, {ProblemsSolved: 1}}, 5), ShouldBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given rosterlens backed by the stub profile server", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		apiTS, stub, stop := newStack(ctx)
		defer stop()

		Convey("When the load check runs", func() {
			cfg := &loadcheck.Config{
				BaseURL:      apiTS.URL,
				Students:     60,
				GhostEvery:   7,
				BlankEvery:   11,
				RepeatEvery:  13,
				Seed:         9,
				TopN:         5,
				PollInterval: 5 * time.Millisecond,
				WaitTimeout:  20 * time.Second,
			}
			stats, err := loadcheck.Run(ctx, cfg)

			Convey("Then every row matches and progress ends at done", func() {
				So(err, ShouldBeNil)
				So(stats.Mismatches, ShouldEqual, 0)
				So(stats.Found+stats.NotFound, ShouldEqual, stats.WithUsername)
				So(stats.Observations, ShouldBeGreaterThan, 0)
				So(stub.Requests(), ShouldBeLessThanOrEqualTo, int64(stats.WithUsername))
			})
		})

		Convey("When the service is unreachable", func() {
			_, err := loadcheck.Run(ctx, &loadcheck.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
			So(err, ShouldNotBeNil)
		})
	})
}
