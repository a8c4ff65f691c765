package loadcheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
	"github.com/okian/rosterlens/internal/domain/view"
	"github.com/okian/rosterlens/pkg/logger"
)

const directoryPermission = 0o750

// ErrProgress reports a progress stream that broke its guarantees.
var ErrProgress = errors.New("progress stream inconsistent")

// Run executes the complete check and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now(), Students: cfg.Students}
	log := logger.Get()

	log.Info(ctx, "starting rosterlens load check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("students", cfg.Students),
		logger.Int64("seed", cfg.Seed),
		logger.Duration("timeout", cfg.Timeout),
	)
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	students := Generate(ctx, cfg)
	body, err := RosterCSV(students)
	if err != nil {
		return stats, err
	}
	if cfg.OutputFile != "" {
		if err := saveRoster(cfg.OutputFile, body); err != nil {
			log.Warn(ctx, "failed to save roster", logger.Error(err))
		}
	}

	start := time.Now()
	res, err := client.Upload(ctx, body)
	if err != nil {
		return stats, fmt.Errorf("upload failed: %w", err)
	}
	stats.UploadLatency = time.Since(start)
	stats.Generation, stats.BatchID = res.Generation, res.BatchID
	log.Info(ctx, "roster accepted",
		logger.Uint64("generation", res.Generation),
		logger.String("batch_id", res.BatchID),
		logger.Int("eligible", res.Eligible),
	)

	if err := waitDone(ctx, cfg, client, res, stats); err != nil {
		return stats, err
	}
	stats.EnrichTime = time.Since(start)

	v, err := client.View(ctx)
	if err != nil {
		return stats, fmt.Errorf("view retrieval failed: %w", err)
	}
	if err := Verify(ctx, students, v.Records, stats); err != nil {
		return stats, err
	}

	top, err := client.ApplyView(ctx, types.ViewQuery{Filter: view.FilterTop, N: cfg.TopN})
	if err != nil {
		return stats, fmt.Errorf("top view failed: %w", err)
	}
	if err := VerifyTop(top.Records, cfg.TopN); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	displayFinalStats(ctx, stats)
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Students <= 0 {
		cfg.Students = DefaultStudents
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
}

// waitDone polls progress until the uploaded generation is done. Percentages
// of one batch never go down.
func waitDone(ctx context.Context, cfg *Config, client *Client, res types.UploadResult, stats *Stats) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	last := -1
	for {
		p, err := client.Progress(ctx)
		if err != nil {
			return fmt.Errorf("progress poll failed: %w", err)
		}
		switch {
		case p.Generation > res.Generation:
			return fmt.Errorf("%w: superseded by generation %d", ErrProgress, p.Generation)
		case p.Generation < res.Generation, p.BatchID != res.BatchID:
			// upload not visible yet
		case p.Percent < last:
			return fmt.Errorf("%w: percent went from %d to %d", ErrProgress, last, p.Percent)
		default:
			if p.Percent != last {
				stats.Observations++
				last = p.Percent
				if cfg.Verbose {
					logger.Get().Info(ctx, "progress", logger.Int("percent", p.Percent), logger.String("status", p.Status))
				}
			}
			if p.State == model.StateDone {
				if p.Percent != model.ProgressDone {
					return fmt.Errorf("%w: done at %d%%", ErrProgress, p.Percent)
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for enrichment: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func saveRoster(filename string, body []byte) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, body, 0o600); err != nil {
		return fmt.Errorf("failed to write roster: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var foundRate, rowsPerSecond float64
	if stats.WithUsername > 0 {
		foundRate = float64(stats.Found) / float64(stats.WithUsername) * PercentageMultiplier
	}
	if stats.EnrichTime > 0 {
		rowsPerSecond = float64(stats.WithUsername) / stats.EnrichTime.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("students", stats.Students),
		logger.Int("withUsername", stats.WithUsername),
		logger.Int("found", stats.Found),
		logger.Int("notFound", stats.NotFound),
		logger.Int("progressObservations", stats.Observations),
		logger.Duration("uploadLatency", stats.UploadLatency),
		logger.Duration("enrichTime", stats.EnrichTime),
		logger.Float64("foundRate", foundRate),
		logger.Float64("rowsPerSecond", rowsPerSecond),
	)
}
