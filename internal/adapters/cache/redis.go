// Package cache memoises found profile lookups in Redis so repeated uploads
// of the same roster do not hit the upstream API again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when the requested key is not cached.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis is unreachable at startup.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheKeyEmpty is returned for an empty key.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// Store is the byte-level cache the fetcher decorator needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config holds Redis connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

// DefaultConfig returns pool and timeout defaults for addr.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:        addr,
		PoolSize:    10,
		DialTimeout: 2 * time.Second,
		IOTimeout:   time.Second,
	}
}

// RedisStore is a Store backed by go-redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
		MaxRetries:   1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns the raw value or ErrCacheMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheKeyEmpty
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Set stores value with ttl; zero ttl keeps it forever.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
