package expect

import (
	"sync"

	"github.com/cuemby/drover/pkg/types"
)

// Tracker holds the per-node expected-status hints. Purely in-memory: a
// process restart loses all hints, which is fine because a restart triggers
// a fresh poll anyway.
type Tracker struct {
	mu    sync.RWMutex
	hints map[string]types.ExpectedStatus
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		hints: make(map[string]types.ExpectedStatus),
	}
}

// Set records a hint for the node, replacing any previous one
func (t *Tracker) Set(nodeID string, status types.ExpectedStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if status == types.ExpectedStatusNone {
		delete(t.hints, nodeID)
		return
	}
	t.hints[nodeID] = status
}

// Get returns the node's hint, or ExpectedStatusNone if there is none
func (t *Tracker) Get(nodeID string) types.ExpectedStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.hints[nodeID]
}

// Clear removes the node's hint
func (t *Tracker) Clear(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.hints, nodeID)
}

// Len returns the number of nodes with an active hint
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.hints)
}
