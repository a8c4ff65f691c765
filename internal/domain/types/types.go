// Package types contains request and response shapes shared by the HTTP API
// and the CLI.
package types

import "time"

// ViewQuery describes a view derivation. Search and Filter start from the
// full roster; Sort alone reorders the current view. An empty Direction
// toggles when Sort repeats the previous key and means asc otherwise.
type ViewQuery struct {
	Search    string `json:"search,omitempty"`
	Filter    string `json:"filter,omitempty"`
	N         int    `json:"n,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Derives reports whether the query rebuilds the view from the roster.
func (q ViewQuery) Derives() bool {
	return q.Search != "" || q.Filter != ""
}

// UploadResult acknowledges an accepted roster.
type UploadResult struct {
	Generation uint64 `json:"generation"`
	BatchID    string `json:"batch_id"`
	Rows       int    `json:"rows"`
	Eligible   int    `json:"eligible"`
}

// SortState is the active ordering of the displayed view.
type SortState struct {
	Key       string `json:"key,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Stats is the service status snapshot.
type Stats struct {
	Started     bool      `json:"started"`
	Generation  uint64    `json:"generation"`
	Records     int       `json:"records"`
	Displayed   int       `json:"displayed"`
	Selected    int       `json:"selected"`
	Progress    int       `json:"progress"`
	State       string    `json:"state"`
	EnrichedAt  time.Time `json:"enriched_at,omitzero"`
	WorkerCount int       `json:"worker_count"`
	CacheOn     bool      `json:"cache_enabled"`
}
