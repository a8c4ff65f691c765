package model

// Outcome is the normalised result of one profile lookup. It is produced by a
// fetcher and consumed exactly once by the merge step.
type Outcome struct {
	Username    string `json:"username"`
	Found       bool   `json:"found"`
	TotalSolved int    `json:"total_solved"`
	Easy        int    `json:"easy"`
	Medium      int    `json:"medium"`
	Hard        int    `json:"hard"`
}

// NotFound returns the sentinel outcome used for every failed lookup.
func NotFound(username string) Outcome {
	return Outcome{Username: username}
}

// Found builds a found outcome; negative counts are clamped to zero and the
// total is derived from the three buckets.
func Found(username string, easy, medium, hard int) Outcome {
	easy, medium, hard = max(easy, 0), max(medium, 0), max(hard, 0)
	return Outcome{
		Username:    username,
		Found:       true,
		TotalSolved: easy + medium + hard,
		Easy:        easy,
		Medium:      medium,
		Hard:        hard,
	}
}
