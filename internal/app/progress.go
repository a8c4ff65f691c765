package service

import (
	"sync"

	"github.com/okian/rosterlens/internal/app/pipeline"
	"github.com/okian/rosterlens/internal/domain/model"
)

// Tracker keeps the latest progress of the current roster generation.
// Observations for any other generation are dropped, and within one batch
// the percentage never goes backwards.
type Tracker struct {
	mu        sync.RWMutex
	current   func() uint64
	latest    model.Progress
	listeners []pipeline.Sink
}

var _ pipeline.Sink = (*Tracker)(nil)

// NewTracker creates a tracker that asks current for the live generation.
func NewTracker(current func() uint64, listeners ...pipeline.Sink) *Tracker {
	return &Tracker{
		current:   current,
		latest:    model.Progress{State: model.StateIdle},
		listeners: listeners,
	}
}

// Publish records p if it belongs to the current generation.
func (t *Tracker) Publish(p model.Progress) {
	t.mu.Lock()
	if p.Generation != t.current() {
		t.mu.Unlock()
		return
	}
	if p.Generation == t.latest.Generation && p.BatchID == t.latest.BatchID && p.Percent < t.latest.Percent {
		t.mu.Unlock()
		return
	}
	t.latest = p
	listeners := t.listeners
	t.mu.Unlock()

	for _, l := range listeners {
		l.Publish(p)
	}
}

// Latest returns the most recent accepted observation.
func (t *Tracker) Latest() model.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}
