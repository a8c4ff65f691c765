// Package stubserver serves a deterministic stand-in for the LeetCode
// GraphQL endpoint. Every username maps to fixed counts, so a roster run
// against it can be verified exactly.
package stubserver

import (
	"hash/fnv"
	"strings"

	"github.com/okian/rosterlens/internal/domain/model"
)

// GhostPrefix marks usernames that have no profile.
const GhostPrefix = "ghost-"

const (
	maxEasy   = 400
	maxMedium = 300
	maxHard   = 80
)

// Profile returns the outcome the stub reports for username. Lookups are
// case-insensitive.
func Profile(username string) model.Outcome {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" || strings.HasPrefix(u, GhostPrefix) {
		return model.NotFound(username)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(u))
	sum := h.Sum64()
	easy := int(sum % maxEasy)
	medium := int((sum >> 16) % maxMedium)
	hard := int((sum >> 32) % maxHard)
	// some profiles exist with nothing solved
	if sum%17 == 0 {
		easy, medium, hard = 0, 0, 0
	}
	return model.Found(username, easy, medium, hard)
}
