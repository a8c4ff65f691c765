package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rosterlens/internal/adapters/mq/queue"
	"github.com/okian/rosterlens/internal/adapters/mq/worker"
	"github.com/okian/rosterlens/internal/domain/model"
	logging "github.com/okian/rosterlens/pkg/logger"
)

// mockFetcher returns canned outcomes and counts calls per username.
type mockFetcher struct {
	mu       sync.Mutex
	profiles map[string]model.Outcome
	calls    map[string]int
	delay    time.Duration
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		profiles: make(map[string]model.Outcome),
		calls:    make(map[string]int),
	}
}

func (m *mockFetcher) Fetch(ctx context.Context, username string) model.Outcome {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return model.NotFound(username)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[username]++
	if o, ok := m.profiles[username]; ok {
		return o
	}
	return model.NotFound(username)
}

func (m *mockFetcher) set(o model.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[o.Username] = o
}

func (m *mockFetcher) callCount(username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[username]
}

func fill(t *testing.T, q *queue.InMemoryQueue, jobs ...queue.Job) {
	t.Helper()
	for _, j := range jobs {
		if !q.Enqueue(context.Background(), j) {
			t.Fatalf("enqueue %s failed", j.Username)
		}
	}
	_ = q.Close()
}

func collect(results <-chan worker.Result) map[string]worker.Result {
	out := make(map[string]worker.Result)
	for r := range results {
		out[r.Job.Username] = r
	}
	return out
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a closed queue of jobs", t, func() {
		_ = logging.Init()

		fetcher := newMockFetcher()
		fetcher.set(model.Found("alice", 10, 5, 1))

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		fill(t, q,
			queue.Job{Generation: 3, Username: "alice", Rows: []int{0}},
			queue.Job{Generation: 3, Username: "ghost", Rows: []int{2, 4}},
		)
		results := make(chan worker.Result, 4)
		w := worker.NewInMemoryWorker(q, fetcher, results,
			worker.WithName("test-worker"),
			worker.WithLogger(logging.Get()),
		)

		convey.Convey("When it runs to completion", func() {
			err := w.Run(context.Background())
			close(results)
			got := collect(results)

			convey.Convey("Then every job produces exactly one result", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldHaveLength, 2)
				convey.So(got["alice"].Outcome.Found, convey.ShouldBeTrue)
				convey.So(got["alice"].Outcome.TotalSolved, convey.ShouldEqual, 16)
				convey.So(got["ghost"].Outcome, convey.ShouldResemble, model.NotFound("ghost"))
				convey.So(got["ghost"].Job.Rows, convey.ShouldResemble, []int{2, 4})
				convey.So(got["ghost"].Job.Generation, convey.ShouldEqual, 3)
			})

			convey.Convey("And a later shutdown returns immediately", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker waiting on an open queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		results := make(chan worker.Result, 1)
		w := worker.NewInMemoryWorker(q, newMockFetcher(), results)

		convey.Convey("When its context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- w.Run(ctx) }()
			cancel()

			convey.Convey("Then Run returns the context error", func() {
				select {
				case err := <-errCh:
					convey.So(err, convey.ShouldEqual, context.Canceled)
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When it is shut down", func() {
			errCh := make(chan error, 1)
			go func() { errCh <- w.Run(context.Background()) }()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(<-errCh, convey.ShouldBeNil)
				_ = q.Close()
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool with fewer workers than jobs", t, func() {
		_ = logging.Init()

		const jobs = 40
		fetcher := newMockFetcher()
		fetcher.delay = 2 * time.Millisecond
		q := queue.NewInMemoryQueue(queue.WithCapacity(jobs))
		var all []queue.Job
		for i := 0; i < jobs; i++ {
			u := fmt.Sprintf("user-%d", i)
			fetcher.set(model.Found(u, i, 0, 0))
			all = append(all, queue.Job{Generation: 1, Username: u, Rows: []int{i}})
		}
		fill(t, q, all...)

		results := make(chan worker.Result, jobs)
		pool := worker.NewPool(3, q, fetcher, results, worker.WithLogger(logging.Get()))

		convey.Convey("When the pool runs", func() {
			err := pool.Run(context.Background())
			close(results)
			got := collect(results)

			convey.Convey("Then every job is fetched exactly once", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(got, convey.ShouldHaveLength, jobs)
				for i := 0; i < jobs; i++ {
					u := fmt.Sprintf("user-%d", i)
					convey.So(fetcher.callCount(u), convey.ShouldEqual, 1)
					convey.So(got[u].Outcome.Easy, convey.ShouldEqual, i)
				}
			})
		})
	})

	convey.Convey("Given a pool built with a non-positive worker count", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, newMockFetcher(), make(chan worker.Result))

		convey.Convey("Then it falls back to the default size", func() {
			convey.So(pool.Size(), convey.ShouldEqual, worker.DefaultWorkerCount)
			_ = q.Close()
		})
	})

	convey.Convey("Given a running pool whose consumer stopped reading", t, func() {
		fetcher := newMockFetcher()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		for i := 0; i < 8; i++ {
			q.Enqueue(context.Background(), queue.Job{Username: fmt.Sprintf("u%d", i)})
		}
		results := make(chan worker.Result)
		pool := worker.NewPool(2, q, fetcher, results)

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- pool.Run(ctx) }()
			<-results
			cancel()

			convey.Convey("Then Run unblocks with the cancellation", func() {
				select {
				case err := <-errCh:
					convey.So(err, convey.ShouldEqual, context.Canceled)
				case <-time.After(time.Second):
					convey.So("pool did not stop", convey.ShouldBeEmpty)
				}
				_ = q.Close()
			})
		})
	})

	convey.Convey("Given a running pool on an open queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		pool := worker.NewPool(2, q, newMockFetcher(), make(chan worker.Result, 8))
		errCh := make(chan error, 1)
		go func() { errCh <- pool.Run(context.Background()) }()

		convey.Convey("When shutting down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is closed and Run returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(<-errCh, convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerJobTimeout(t *testing.T) {
	convey.Convey("Given a worker whose fetcher is slower than the job timeout", t, func() {
		fetcher := newMockFetcher()
		fetcher.delay = time.Second
		fetcher.set(model.Found("slow", 1, 1, 1))

		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		fill(t, q, queue.Job{Generation: 1, Username: "slow", Rows: []int{0}})

		results := make(chan worker.Result, 1)
		w := worker.NewInMemoryWorker(q, fetcher, results, worker.WithJobTimeout(10*time.Millisecond))

		convey.Convey("When it runs", func() {
			start := time.Now()
			err := w.Run(context.Background())
			close(results)
			got := collect(results)

			convey.Convey("Then the fetch is cut short and normalised to not found", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(time.Since(start), convey.ShouldBeLessThan, 500*time.Millisecond)
				convey.So(got["slow"].Outcome.Found, convey.ShouldBeFalse)
				convey.So(fetcher.callCount("slow"), convey.ShouldEqual, 0)
			})
		})
	})
}
