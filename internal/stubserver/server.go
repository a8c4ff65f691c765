package stubserver

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rosterlens/pkg/logger"
)

const (
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
	defaultRandomSeed = 42
	maxRequestBytes   = 64 << 10
)

// Option configures a Server.
type Option func(*Server)

// WithLatencyRange sets the simulated response latency. A zero range
// disables the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Server) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed makes the latency sequence reproducible.
func WithSeed(seed int64) Option {
	return func(s *Server) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible latency
	}
}

// WithUnavailableEvery answers every nth request with 503, so callers can
// exercise their retry path. Zero disables it.
func WithUnavailableEvery(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.unavailableEvery = int64(n)
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server is an http.Handler answering the profile query.
type Server struct {
	minLatency       time.Duration
	maxLatency       time.Duration
	unavailableEvery int64

	rngMu sync.Mutex
	rng   *rand.Rand

	requests atomic.Int64
	mu       sync.Mutex
	lookups  map[string]int

	logger logger.Logger
}

// New creates a stub server.
func New(opts ...Option) *Server {
	s := &Server{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // reproducible latency
		lookups:    make(map[string]int),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type request struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type difficultyCount struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type matchedUser struct {
	Username    string `json:"username"`
	SubmitStats struct {
		AcSubmissionNum []difficultyCount `json:"acSubmissionNum"`
	} `json:"submitStats"`
}

type response struct {
	Data struct {
		MatchedUser *matchedUser `json:"matchedUser"`
	} `json:"data"`
	Errors []gqlError `json:"errors,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

// ServeHTTP answers POST requests carrying the username variable.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n := s.requests.Add(1)

	var req request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := req.Variables["username"]
	s.record(username)

	select {
	case <-r.Context().Done():
		return
	case <-time.After(s.latency()):
	}

	if s.unavailableEvery > 0 && n%s.unavailableEvery == 0 {
		s.logger.Debug(r.Context(), "injected unavailable", logger.String("username", username))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	var resp response
	if o := Profile(username); o.Found {
		u := &matchedUser{Username: username}
		u.SubmitStats.AcSubmissionNum = []difficultyCount{
			{Difficulty: "All", Count: o.TotalSolved},
			{Difficulty: "Easy", Count: o.Easy},
			{Difficulty: "Medium", Count: o.Medium},
			{Difficulty: "Hard", Count: o.Hard},
		}
		resp.Data.MatchedUser = u
	} else {
		resp.Errors = []gqlError{{Message: "That user does not exist."}}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn(r.Context(), "write response", logger.Error(err))
	}
}

func (s *Server) latency() time.Duration {
	if s.maxLatency <= s.minLatency {
		return s.minLatency
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
}

func (s *Server) record(username string) {
	s.mu.Lock()
	s.lookups[strings.ToLower(username)]++
	s.mu.Unlock()
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Lookups returns how often username was asked for, case-insensitively.
func (s *Server) Lookups(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[strings.ToLower(username)]
}
