// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Load layers a YAML file and ROSTERLENS_* environment variables on top.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"

	"github.com/okian/rosterlens/internal/domain/view"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of concurrent profile fetches per batch.
	WorkerCount int `koanf:"worker_count"`

	// FetchTimeoutMS bounds a single profile lookup.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// BatchTimeoutMS bounds a whole enrichment batch. Zero disables the deadline.
	BatchTimeoutMS int `koanf:"batch_timeout_ms"`

	// FetchAttempts is the number of tries per profile lookup (1 = no retry).
	FetchAttempts int `koanf:"fetch_attempts"`

	// RetryBaseDelayMS is the first backoff delay between attempts.
	RetryBaseDelayMS int `koanf:"retry_base_delay_ms"`

	// CoalesceUsernames issues one lookup per distinct username in a batch.
	CoalesceUsernames bool `koanf:"coalesce_usernames"`

	// LeetCodeURL is the GraphQL endpoint queried for profiles.
	LeetCodeURL string `koanf:"leetcode_url"`

	// DistributionBins is the bucket layout for the distribution view,
	// e.g. "0,1-25,26-50,51-100,101-200,201-300,301+".
	DistributionBins string `koanf:"distribution_bins"`

	// TopN is the default size of the "top" filter.
	TopN int `koanf:"top_n"`

	// RedisAddr enables the outcome cache when non-empty.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// CacheTTLSeconds is how long a found profile stays cached.
	CacheTTLSeconds int `koanf:"cache_ttl_s"`

	// MaxUploadBytes caps POST /roster bodies.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// DefaultBins is the distribution layout shown on the roster dashboard.
const DefaultBins = view.DefaultLayout

// DefaultLeetCodeURL is the public GraphQL endpoint.
const DefaultLeetCodeURL = "https://leetcode.com/graphql"

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		WorkerCount:      5,
		FetchTimeoutMS:   10_000,
		FetchAttempts:    1,
		RetryBaseDelayMS: 250,
		LeetCodeURL:      DefaultLeetCodeURL,
		DistributionBins: DefaultBins,
		TopN:             10,
		CacheTTLSeconds:  3600,
		MaxUploadBytes:   10 << 20,
	}
}

// Validate checks ranges that would otherwise surface as runtime surprises.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.FetchTimeoutMS <= 0:
		return fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
	case c.BatchTimeoutMS < 0:
		return fmt.Errorf("%w: batch_timeout_ms must not be negative", ErrInvalidConfig)
	case c.FetchAttempts < 1:
		return fmt.Errorf("%w: fetch_attempts must be at least 1", ErrInvalidConfig)
	case c.RetryBaseDelayMS < 0:
		return fmt.Errorf("%w: retry_base_delay_ms must not be negative", ErrInvalidConfig)
	case c.LeetCodeURL == "":
		return fmt.Errorf("%w: leetcode_url must not be empty", ErrInvalidConfig)
	case c.TopN <= 0:
		return fmt.Errorf("%w: top_n must be positive", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Bins(); err != nil {
		return fmt.Errorf("%w: distribution_bins: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Bins parses DistributionBins.
func (c *Config) Bins() (view.Bins, error) {
	return view.ParseBins(c.DistributionBins)
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// BatchTimeout returns BatchTimeoutMS as a duration; zero means no deadline.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutMS) * time.Millisecond
}

// RetryBaseDelay returns RetryBaseDelayMS as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
