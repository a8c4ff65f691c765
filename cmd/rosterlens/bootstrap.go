package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/rosterlens/internal/adapters/cache"
	"github.com/okian/rosterlens/internal/adapters/leetcode"
	service "github.com/okian/rosterlens/internal/app"
	"github.com/okian/rosterlens/internal/config"
	"github.com/okian/rosterlens/pkg/logger"
)

// setup loads configuration and initialises the global logger on w.
func setup(ctx context.Context, flags *rootFlags, w io.Writer) (*config.Config, logger.Logger, error) {
	if flags.configPath != "" {
		if err := os.Setenv("ROSTERLENS_CONFIG", flags.configPath); err != nil {
			return nil, nil, fmt.Errorf("set config path: %w", err)
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	opts := []logger.Option{logger.WithWriter(w)}
	if cfg.LogFormat == "json" {
		opts = append(opts, logger.WithJSON())
	}
	if err := logger.Init(opts...); err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()

	// fall back to info on invalid input
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// newFetcher builds the LeetCode client and, when redis_addr is set, the
// outcome cache in front of it. The returned closer releases the cache.
func newFetcher(ctx context.Context, cfg *config.Config, log logger.Logger) (leetcode.Fetcher, bool, func()) {
	client := leetcode.NewClient(
		leetcode.WithURL(cfg.LeetCodeURL),
		leetcode.WithTimeout(cfg.FetchTimeout()),
		leetcode.WithAttempts(cfg.FetchAttempts),
		leetcode.WithBaseDelay(cfg.RetryBaseDelay()),
		leetcode.WithLogger(log.Named("leetcode")),
	)
	if cfg.RedisAddr == "" {
		return client, false, func() {}
	}

	rc := cache.DefaultConfig(cfg.RedisAddr)
	rc.Password = cfg.RedisPassword
	rc.DB = cfg.RedisDB
	store, err := cache.NewRedisStore(ctx, rc)
	if err != nil {
		log.Warn(ctx, "outcome cache unavailable; fetching uncached",
			logger.String("redis_addr", cfg.RedisAddr), logger.Error(err))
		return client, false, func() {}
	}
	closer := func() {
		if err := store.Close(); err != nil {
			log.Warn(context.Background(), "close outcome cache", logger.Error(err))
		}
	}
	return cache.NewFetcher(client, store, cfg.CacheTTL(), log.Named("cache")), true, closer
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, f leetcode.Fetcher, cached bool, log logger.Logger) ([]service.Option, error) {
	bins, err := cfg.Bins()
	if err != nil {
		return nil, err
	}
	return []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithFetcher(f),
		service.WithCacheEnabled(cached),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithBatchTimeout(cfg.BatchTimeout()),
		service.WithCoalescing(cfg.CoalesceUsernames),
		service.WithTopN(cfg.TopN),
		service.WithBins(bins),
	}, nil
}
