// Package model contains domain models passed between layers.
package model

// StudentRecord is one roster row. Identity fields are set at ingestion and
// never change; enrichment fields are written by the pipeline as one unit.
type StudentRecord struct {
	Row        int    `json:"row"` // stable position in the roster
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Username   string `json:"leetcode_username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`

	// Extra holds input columns outside the known set, keyed by the
	// normalised header. Exports may project them.
	Extra map[string]string `json:"extra,omitempty"`

	ProblemsSolved int  `json:"problems_solved"`
	Easy           int  `json:"easy_count"`
	Medium         int  `json:"medium_count"`
	Hard           int  `json:"hard_count"`
	ProfileFound   bool `json:"profile_found"`

	// Enriched is set once an outcome has been merged into the record.
	Enriched bool `json:"enriched"`
}

// Eligible reports whether the record has a username to look up.
func (r StudentRecord) Eligible() bool {
	return r.Username != ""
}

// Clone returns a deep copy so callers can hand out records without sharing
// the Extra map.
func (r StudentRecord) Clone() StudentRecord {
	if r.Extra != nil {
		extra := make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}

// Apply writes the outcome's enrichment fields into the record. The total is
// always recomputed from the difficulty counts.
func (r *StudentRecord) Apply(o Outcome) {
	if !o.Found {
		r.ProblemsSolved, r.Easy, r.Medium, r.Hard = 0, 0, 0, 0
		r.ProfileFound = false
		r.Enriched = true
		return
	}
	r.Easy, r.Medium, r.Hard = o.Easy, o.Medium, o.Hard
	r.ProblemsSolved = o.Easy + o.Medium + o.Hard
	r.ProfileFound = true
	r.Enriched = true
}

// CloneRecords deep-copies a slice of records.
func CloneRecords(in []StudentRecord) []StudentRecord {
	out := make([]StudentRecord, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
