// Package dedupe groups roster rows that share a username so one lookup can
// serve all of them.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Coalescer tracks which usernames already have a lookup in flight.
type Coalescer interface {
	// SeenAndRecord files row under username. It returns true if the
	// username was already recorded, meaning no new lookup is needed.
	SeenAndRecord(ctx context.Context, username string, row int) bool

	// Rows returns every row filed under username, first-recorded first.
	Rows(ctx context.Context, username string) []int

	// Size is the number of distinct usernames recorded.
	Size() int64
}

type inMemoryCoalescer struct {
	mu       sync.RWMutex
	rows     map[string][]int
	foldCase bool
	size     atomic.Int64
}

// NewCoalescer creates an in-memory coalescer. One instance serves one batch.
func NewCoalescer(opts ...Option) Coalescer {
	c := &inMemoryCoalescer{rows: make(map[string][]int)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *inMemoryCoalescer) key(username string) string {
	if c.foldCase {
		return strings.ToLower(username)
	}
	return username
}

func (c *inMemoryCoalescer) SeenAndRecord(_ context.Context, username string, row int) bool {
	k := c.key(username)

	c.mu.Lock()
	defer c.mu.Unlock()

	rows, exists := c.rows[k]
	c.rows[k] = append(rows, row)
	if !exists {
		c.size.Add(1)
	}
	return exists
}

func (c *inMemoryCoalescer) Rows(_ context.Context, username string) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := c.rows[c.key(username)]
	out := make([]int, len(rows))
	copy(out, rows)
	return out
}

func (c *inMemoryCoalescer) Size() int64 {
	return c.size.Load()
}
