// Package leetcode fetches per-difficulty solved counts from the LeetCode
// GraphQL endpoint and normalises every failure to a not-found outcome.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/pkg/logger"
	"github.com/okian/rosterlens/pkg/metrics"
)

const (
	// DefaultURL is the public GraphQL endpoint.
	DefaultURL = "https://leetcode.com/graphql"

	defaultTimeout   = 10 * time.Second
	defaultAttempts  = 1
	defaultBaseDelay = 250 * time.Millisecond
	maxResponseBytes = 1 << 20
)

// UserProfileQuery selects the accepted submission counts per difficulty.
const UserProfileQuery = `query getUserProfile($username: String!) {
  matchedUser(username: $username) {
    username
    submitStats: submitStatsGlobal {
      acSubmissionNum {
        difficulty
        count
      }
    }
  }
}`

// Fetcher looks up one username. Implementations never fail: every error
// becomes model.NotFound.
type Fetcher interface {
	Fetch(ctx context.Context, username string) model.Outcome
}

// Client is the HTTP Fetcher.
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	attempts   int
	baseDelay  time.Duration
	logger     logger.Logger
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		url:        DefaultURL,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		attempts:   defaultAttempts,
		baseDelay:  defaultBaseDelay,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, username string) model.Outcome {
	start := time.Now()
	o, err := c.Lookup(ctx, username)
	if err != nil {
		c.logger.Debug(ctx, "profile lookup failed", logger.String("username", username), logger.Error(err))
		if !errors.Is(err, ErrUserNotFound) {
			metrics.RecordErrorByComponent("leetcode", errorType(err))
		}
		o = model.NotFound(username)
	}
	metrics.RecordFetch(o.Found, float64(time.Since(start).Microseconds())/1000.0)
	return o
}

// Lookup performs the request with the configured attempts and reports why a
// lookup failed. Only transient failures are retried.
func (c *Client) Lookup(ctx context.Context, username string) (model.Outcome, error) {
	if username == "" {
		return model.NotFound(username), ErrUserNotFound
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			metrics.RecordFetchRetry()
			delay := c.baseDelay << (attempt - 2)
			select {
			case <-ctx.Done():
				return model.NotFound(username), ctx.Err()
			case <-time.After(delay):
			}
		}

		o, err := c.lookupOnce(ctx, username)
		if err == nil {
			return o, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return model.NotFound(username), lastErr
}

func (c *Client) lookupOnce(ctx context.Context, username string) (model.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(graphQLRequest{
		Query:     UserProfileQuery,
		Variables: map[string]string{"username": username},
	})
	if err != nil {
		return model.Outcome{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return model.Outcome{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Outcome{}, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.Outcome{}, &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return model.Outcome{}, &StatusError{Code: resp.StatusCode}
	}

	var payload graphQLResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return parse(username, payload)
}

// parse reads the three difficulty buckets. The first occurrence of each
// wins; "All" and unknown buckets are ignored and the total is recomputed.
func parse(username string, payload graphQLResponse) (model.Outcome, error) {
	user := payload.Data.MatchedUser
	if user == nil {
		if len(payload.Errors) > 0 {
			return model.Outcome{}, fmt.Errorf("%w: %s", ErrUserNotFound, payload.Errors[0].Message)
		}
		return model.Outcome{}, ErrUserNotFound
	}

	counts := map[string]int{}
	for _, s := range user.SubmitStats.AcSubmissionNum {
		if _, seen := counts[s.Difficulty]; !seen {
			counts[s.Difficulty] = s.Count
		}
	}
	return model.Found(username, counts["Easy"], counts["Medium"], counts["Hard"]), nil
}

type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		MatchedUser *matchedUser `json:"matchedUser"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type matchedUser struct {
	Username    string `json:"username"`
	SubmitStats struct {
		AcSubmissionNum []struct {
			Difficulty string `json:"difficulty"`
			Count      int    `json:"count"`
		} `json:"acSubmissionNum"`
	} `json:"submitStats"`
}
