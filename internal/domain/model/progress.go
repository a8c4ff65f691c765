package model

import "time"

// BatchState is a step of the enrichment state machine.
type BatchState string

const (
	StateIdle        BatchState = "idle"
	StateDispatching BatchState = "dispatching"
	StateAwaiting    BatchState = "awaiting"
	StateMerging     BatchState = "merging"
	StateDone        BatchState = "done"
	StateFailed      BatchState = "failed"
)

// Progress baselines on the 0-100 scale.
const (
	ProgressRead     = 10
	ProgressParsed   = 20
	ProgressFetching = 70 // span covered by merges
	ProgressDone     = 100
)

// Progress is one observation on the progress channel.
type Progress struct {
	Generation uint64     `json:"generation"`
	BatchID    string     `json:"batch_id,omitempty"`
	Percent    int        `json:"percent"`
	Status     string     `json:"status"`
	State      BatchState `json:"state"`
	Completed  int        `json:"completed"`
	Total      int        `json:"total"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MergePercent maps completed/total merges to the 20..90 band.
func MergePercent(completed, total int) int {
	if total <= 0 {
		return ProgressParsed + ProgressFetching
	}
	return ProgressParsed + ProgressFetching*completed/total
}
