package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	outcomes map[string]model.Outcome
}

func (c *countingFetcher) Fetch(_ context.Context, username string) model.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[username]++
	if o, ok := c.outcomes[username]; ok {
		return o
	}
	return model.NotFound(username)
}

func TestFetcher_ReadThrough(t *testing.T) {
	store := newMemStore()
	next := &countingFetcher{outcomes: map[string]model.Outcome{"Asha": model.Found("Asha", 1, 2, 3)}}
	f := NewFetcher(next, store, time.Hour, nil)
	ctx := context.Background()

	first := f.Fetch(ctx, "Asha")
	second := f.Fetch(ctx, "Asha")

	assert.Equal(t, model.Found("Asha", 1, 2, 3), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls["Asha"])
	assert.Equal(t, time.Hour, store.ttls[Key("asha")])
}

func TestFetcher_HitKeepsRequestedUsername(t *testing.T) {
	store := newMemStore()
	next := &countingFetcher{outcomes: map[string]model.Outcome{"asha": model.Found("asha", 1, 0, 0)}}
	f := NewFetcher(next, store, 0, nil)
	ctx := context.Background()

	_ = f.Fetch(ctx, "asha")
	o := f.Fetch(ctx, "ASHA")

	assert.Equal(t, "ASHA", o.Username)
	assert.True(t, o.Found)
	assert.Equal(t, 0, next.calls["ASHA"])
}

func TestFetcher_NotFoundIsNotCached(t *testing.T) {
	store := newMemStore()
	next := &countingFetcher{}
	f := NewFetcher(next, store, time.Hour, nil)
	ctx := context.Background()

	assert.False(t, f.Fetch(ctx, "ghost").Found)
	assert.False(t, f.Fetch(ctx, "ghost").Found)

	assert.Equal(t, 2, next.calls["ghost"])
	assert.Empty(t, store.data)
}

func TestFetcher_StoreFailuresFallThrough(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("connection reset")
	store.failSet = errors.New("connection reset")
	next := &countingFetcher{outcomes: map[string]model.Outcome{"a": model.Found("a", 5, 0, 0)}}
	f := NewFetcher(next, store, time.Hour, nil)

	o := f.Fetch(context.Background(), "a")

	assert.True(t, o.Found)
	assert.Equal(t, 5, o.TotalSolved)
}

func TestFetcher_CorruptEntryIsRefetched(t *testing.T) {
	store := newMemStore()
	store.data[Key("a")] = []byte("{not json")
	next := &countingFetcher{outcomes: map[string]model.Outcome{"a": model.Found("a", 0, 1, 0)}}
	f := NewFetcher(next, store, time.Hour, nil)

	o := f.Fetch(context.Background(), "a")

	require.True(t, o.Found)
	assert.Equal(t, 1, next.calls["a"])
	assert.JSONEq(t, `{"username":"a","found":true,"total_solved":1,"easy":0,"medium":1,"hard":0}`, string(store.data[Key("a")]))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	cfg := DefaultConfig("127.0.0.1:1")
	cfg.DialTimeout = 100 * time.Millisecond

	_, err := NewRedisStore(context.Background(), cfg)

	assert.ErrorIs(t, err, ErrCacheConnection)
}
