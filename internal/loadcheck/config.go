// Package loadcheck drives a running rosterlens instance end to end: it
// generates a roster, uploads it, follows progress to completion and checks
// the enriched view against the stub profile table.
package loadcheck

import "time"

// Config holds configuration for a load check.
type Config struct {
	BaseURL      string        // rosterlens base URL
	Students     int           // roster size
	GhostEvery   int           // every nth student gets a username with no profile
	BlankEvery   int           // every nth student has no username
	RepeatEvery  int           // every nth student reuses an earlier username in upper case
	Seed         int64         // generator seed
	TopN         int           // size of the top view checked after enrichment
	Timeout      time.Duration // per-request HTTP timeout
	WaitTimeout  time.Duration // how long to wait for the batch to finish
	PollInterval time.Duration // progress polling interval
	OutputFile   string        // optional CSV copy of the generated roster
	Verbose      bool
}

// Stats holds check statistics.
type Stats struct {
	Students      int
	WithUsername  int
	Found         int
	NotFound      int
	Mismatches    int
	Observations  int // distinct progress percentages seen
	Generation    uint64
	BatchID       string
	StartTime     time.Time
	EndTime       time.Time
	UploadLatency time.Duration
	EnrichTime    time.Duration
}
