package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/okian/rosterlens/internal/adapters/leetcode"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

// PrefixProfile namespaces cached outcomes.
const PrefixProfile = "rosterlens:profile:"

// Fetcher decorates a leetcode.Fetcher with a read-through cache. Only found
// outcomes are stored so a user who registers later is picked up on the next
// batch. Cache failures fall through to the wrapped fetcher.
type Fetcher struct {
	next   leetcode.Fetcher
	store  Store
	ttl    time.Duration
	logger logger.Logger
}

var _ leetcode.Fetcher = (*Fetcher)(nil)

// NewFetcher wraps next with store.
func NewFetcher(next leetcode.Fetcher, store Store, ttl time.Duration, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{next: next, store: store, ttl: ttl, logger: log}
}

// Key returns the cache key for username. LeetCode usernames are not case
// sensitive, so the key is lower-cased.
func Key(username string) string {
	return PrefixProfile + strings.ToLower(username)
}

// Fetch implements leetcode.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, username string) model.Outcome {
	key := Key(username)

	if data, err := f.store.Get(ctx, key); err == nil {
		var o model.Outcome
		if err := json.Unmarshal(data, &o); err == nil && o.Found {
			metrics.RecordCacheLookup(true)
			return model.Found(username, o.Easy, o.Medium, o.Hard)
		}
		f.logger.Warn(ctx, "discarding unreadable cache entry", logger.String("key", key))
	} else if !errors.Is(err, ErrCacheMiss) {
		metrics.RecordCacheFailure()
		f.logger.Warn(ctx, "cache read failed", logger.String("key", key), logger.Error(err))
	}
	metrics.RecordCacheLookup(false)

	o := f.next.Fetch(ctx, username)
	if !o.Found {
		return o
	}
	data, err := json.Marshal(o)
	if err != nil {
		return o
	}
	if err := f.store.Set(ctx, key, data, f.ttl); err != nil {
		metrics.RecordCacheFailure()
		f.logger.Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
	}
	return o
}
