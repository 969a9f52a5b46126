package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/drover/pkg/events"
	"github.com/cuemby/drover/pkg/expect"
	"github.com/cuemby/drover/pkg/gate"
	"github.com/cuemby/drover/pkg/health"
	"github.com/cuemby/drover/pkg/log"
	"github.com/cuemby/drover/pkg/metrics"
	"github.com/cuemby/drover/pkg/storage"
	"github.com/cuemby/drover/pkg/types"
)

// API is the controller surface the reconciler depends on. Implemented by
// *controller.Client.
type API interface {
	GetNode(ctx context.Context, name string) (types.Node, error)
	GetLoadInformation(ctx context.Context, name string) (types.LoadInformation, error)
	GetHealth(ctx context.Context, name string, filter health.EventsFilter) (types.Health, error)
	Activate(ctx context.Context, name string) error
	Deactivate(ctx context.Context, name string, intent types.DeactivationIntent) error
	RemoveNodeState(ctx context.Context, name string) error
	Restart(ctx context.Context, name, instanceID string) error
}

// ErrNotTracked is returned for operations on a node the reconciler does
// not track
var ErrNotTracked = errors.New("node not tracked")

// Options configures a Reconciler
type Options struct {
	// PollInterval is the time between polls per node. Zero means 15s.
	PollInterval time.Duration

	// Filter selects which health events polls request
	Filter health.EventsFilter

	// Store, when set, receives every successful snapshot (upsert) and
	// serves last-known data across restarts. Optional.
	Store storage.Store

	// Broker, when set, receives reconciler events. Optional.
	Broker *events.Broker
}

// Reconciler tracks a set of cluster nodes, polling each on its own loop
// and dispatching lifecycle commands. Operations against one node are
// serialized; distinct nodes are fully independent.
type Reconciler struct {
	api     API
	opts    Options
	tracker *expect.Tracker

	mu       sync.RWMutex
	watchers map[string]*watcher
}

// watcher is the per-node actor state. op serializes all operations
// (poll fetch+apply, command dispatch) for the node; mu guards the fields
// and is only held briefly so readers never wait on the network.
type watcher struct {
	id     string
	op     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	snapshot *types.NodeSnapshot
	lost     bool
}

// NodeState is a read-only view of one tracked node
type NodeState struct {
	NodeID   string               `json:"nodeId"`
	Snapshot *types.NodeSnapshot  `json:"snapshot,omitempty"`
	Expected types.ExpectedStatus `json:"expectedStatus,omitempty"`
	Lost     bool                 `json:"lost,omitempty"`
	Enabled  []string             `json:"enabledCommands"`
}

// New creates a reconciler over the given controller API
func New(api API, opts Options) *Reconciler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.Filter == health.FilterNone {
		opts.Filter = health.DefaultFilter
	}
	return &Reconciler{
		api:      api,
		opts:     opts,
		tracker:  expect.NewTracker(),
		watchers: make(map[string]*watcher),
	}
}

// Track starts polling the node. Tracking an already-tracked node is a
// no-op.
func (r *Reconciler) Track(nodeID string) {
	r.ensureWatcher(nodeID, true)
}

// Observe registers the node (without a poll loop if it is new) and
// performs one synchronous poll, returning the resulting state. Used by
// one-shot CLI commands that need a fresh gate decision before dispatch.
func (r *Reconciler) Observe(ctx context.Context, nodeID string) (NodeState, error) {
	w := r.ensureWatcher(nodeID, false)
	_, err := r.pollOnce(ctx, w, log.WithNodeID(nodeID))

	st, stateErr := r.State(nodeID)
	if stateErr != nil {
		return NodeState{}, stateErr
	}
	return st, err
}

func (r *Reconciler) ensureWatcher(nodeID string, startLoop bool) *watcher {
	r.mu.Lock()
	if w, exists := r.watchers[nodeID]; exists {
		r.mu.Unlock()
		return w
	}

	w := &watcher{
		id:     nodeID,
		cancel: func() {},
		done:   make(chan struct{}),
	}
	var ctx context.Context
	if startLoop {
		ctx, w.cancel = context.WithCancel(context.Background())
	} else {
		// No loop to wait for on Untrack
		close(w.done)
	}
	r.watchers[nodeID] = w
	metrics.NodesTracked.Set(float64(len(r.watchers)))
	r.mu.Unlock()

	if r.opts.Store != nil {
		// Seed from cache so status reads have context before the first poll
		if snap, err := r.opts.Store.GetSnapshot(nodeID); err == nil {
			w.mu.Lock()
			w.snapshot = snap
			w.mu.Unlock()
		}
	}

	r.publish(&events.Event{Type: events.EventNodeTracked, NodeID: nodeID})
	if startLoop {
		go r.run(ctx, w)
	}
	return w
}

// Untrack stops polling the node and forgets its hint. Any call in flight
// for the node is cancelled; its eventual completion mutates nothing.
func (r *Reconciler) Untrack(nodeID string) {
	r.mu.Lock()
	w, exists := r.watchers[nodeID]
	if exists {
		delete(r.watchers, nodeID)
		metrics.NodesTracked.Set(float64(len(r.watchers)))
	}
	r.mu.Unlock()

	if !exists {
		return
	}

	w.cancel()
	<-w.done
	r.tracker.Clear(nodeID)
	metrics.ExpectedHintsActive.Set(float64(r.tracker.Len()))
	r.publish(&events.Event{Type: events.EventNodeUntracked, NodeID: nodeID})
}

// Tracked returns the IDs of all tracked nodes
func (r *Reconciler) Tracked() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	return ids
}

// Stop untracks every node and waits for their loops to exit
func (r *Reconciler) Stop() {
	for _, id := range r.Tracked() {
		r.Untrack(id)
	}
}

// State returns the node's current view: last snapshot, hint, and the
// commands the gate currently allows
func (r *Reconciler) State(nodeID string) (NodeState, error) {
	w, err := r.watcher(nodeID)
	if err != nil {
		return NodeState{}, err
	}

	w.mu.RLock()
	snap := w.snapshot
	lost := w.lost
	w.mu.RUnlock()

	st := gate.State{Status: types.NodeStatusInvalid, Expected: r.tracker.Get(nodeID)}
	if snap != nil {
		st.Status = snap.Node.Status
	}

	var enabled []string
	for _, c := range gate.EnabledCommands(st) {
		enabled = append(enabled, c.Name)
	}

	return NodeState{
		NodeID:   nodeID,
		Snapshot: snap,
		Expected: st.Expected,
		Lost:     lost,
		Enabled:  enabled,
	}, nil
}

// States returns the view of every tracked node
func (r *Reconciler) States() []NodeState {
	var out []NodeState
	for _, id := range r.Tracked() {
		if st, err := r.State(id); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func (r *Reconciler) watcher(nodeID string) (*watcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, exists := r.watchers[nodeID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, nodeID)
	}
	return w, nil
}

// run is the per-node poll loop
func (r *Reconciler) run(ctx context.Context, w *watcher) {
	defer close(w.done)

	logger := log.WithNodeID(w.id)

	// Poll immediately, then on the ticker
	if terminal, _ := r.pollOnce(ctx, w, logger); terminal {
		return
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if terminal, _ := r.pollOnce(ctx, w, logger); terminal {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) publish(ev *events.Event) {
	if r.opts.Broker != nil {
		r.opts.Broker.Publish(ev)
	}
}
