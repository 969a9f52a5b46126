package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/drover/pkg/controller"
	"github.com/cuemby/drover/pkg/gate"
	"github.com/cuemby/drover/pkg/health"
	"github.com/cuemby/drover/pkg/log"
	"github.com/cuemby/drover/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true})
}

// fakeController is an in-memory API implementation for reconciler tests
type fakeController struct {
	mu sync.Mutex

	node   types.Node
	load   types.LoadInformation
	health types.Health

	nodeErr   error
	loadErr   error
	healthErr error

	activateErr   error
	deactivateErr error
	removeErr     error
	restartErr    error

	activateCalls   int
	deactivateCalls int
	removeCalls     int
	restartCalls    int

	lastIntent     types.DeactivationIntent
	lastInstanceID string
	lastFilter     health.EventsFilter
}

func newFakeController(nodeID string, status types.NodeStatus) *fakeController {
	return &fakeController{
		node: types.Node{
			ID:         nodeID,
			Status:     status,
			InstanceID: "133001",
		},
		load: types.LoadInformation{
			NodeID: nodeID,
			Metrics: []types.LoadMetric{
				{Name: "Cpu", NodeLoad: 50, NodeCapacity: 200},
			},
		},
		health: types.Health{
			NodeID:         nodeID,
			AggregateState: types.HealthStateOk,
		},
	}
}

func (f *fakeController) setStatus(status types.NodeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.node.Status = status
}

func (f *fakeController) setErrors(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodeErr, f.loadErr, f.healthErr = err, err, err
}

func (f *fakeController) GetNode(ctx context.Context, name string) (types.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.node, f.nodeErr
}

func (f *fakeController) GetLoadInformation(ctx context.Context, name string) (types.LoadInformation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load, f.loadErr
}

func (f *fakeController) GetHealth(ctx context.Context, name string, filter health.EventsFilter) (types.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.health, f.healthErr
}

func (f *fakeController) Activate(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateCalls++
	return f.activateErr
}

func (f *fakeController) Deactivate(ctx context.Context, name string, intent types.DeactivationIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivateCalls++
	f.lastIntent = intent
	return f.deactivateErr
}

func (f *fakeController) RemoveNodeState(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	return f.removeErr
}

func (f *fakeController) Restart(ctx context.Context, name, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartCalls++
	f.lastInstanceID = instanceID
	return f.restartErr
}

// TestObserveBuildsSnapshot tests a basic one-shot poll
func TestObserveBuildsSnapshot(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{})

	st, err := rec.Observe(context.Background(), "N1")
	require.NoError(t, err)
	require.NotNil(t, st.Snapshot)
	assert.Equal(t, types.NodeStatusUp, st.Snapshot.Node.Status)
	assert.Equal(t, types.ExpectedStatusNone, st.Expected)
	assert.Equal(t, []string{"deactivate", "restart"}, st.Enabled)
	assert.False(t, st.Snapshot.ObservedAt.IsZero())
}

// TestActivateSetsExpectedUntilNextPoll tests the hint lifecycle: set on
// acknowledgment, cleared by the next successful poll regardless of the
// polled value
func TestActivateSetsExpectedUntilNextPoll(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusDown)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	require.NoError(t, rec.Activate(ctx, "N1"))
	assert.Equal(t, 1, fake.activateCalls)

	st, err := rec.State("N1")
	require.NoError(t, err)
	assert.Equal(t, types.ExpectedStatusUp, st.Expected)

	// next poll still reports Down; the hint is cleared anyway
	_, err = rec.Observe(ctx, "N1")
	require.NoError(t, err)

	st, err = rec.State("N1")
	require.NoError(t, err)
	assert.Equal(t, types.ExpectedStatusNone, st.Expected)
	assert.Equal(t, types.NodeStatusDown, st.Snapshot.Node.Status)
}

// TestDeactivateScenario walks the full deactivation sequence: command on
// an up node, hint Disabled, poll observes Disabling, hint gone, activate
// gated on the polled status again
func TestDeactivateScenario(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	require.NoError(t, rec.Deactivate(ctx, "N1", types.IntentRestart))
	assert.Equal(t, types.IntentRestart, fake.lastIntent)

	st, err := rec.State("N1")
	require.NoError(t, err)
	assert.Equal(t, types.ExpectedStatusDisabled, st.Expected)

	// hint overrides the stale Up status: activate offered, not a second
	// deactivate path to nowhere
	assert.Contains(t, st.Enabled, "activate")

	fake.setStatus(types.NodeStatusDisabling)
	_, err = rec.Observe(ctx, "N1")
	require.NoError(t, err)

	st, err = rec.State("N1")
	require.NoError(t, err)
	assert.Equal(t, types.ExpectedStatusNone, st.Expected)
	assert.Equal(t, types.NodeStatusDisabling, st.Snapshot.Node.Status)
	assert.Contains(t, st.Enabled, "activate")
}

// TestPreconditionNeverReachesNetwork tests client-side gate refusal
func TestPreconditionNeverReachesNetwork(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	err = rec.Activate(ctx, "N1")
	assert.Error(t, err)

	var pre *gate.PreconditionError
	assert.ErrorAs(t, err, &pre)
	assert.Zero(t, fake.activateCalls, "refused command must not reach the network")

	err = rec.RemoveNodeState(ctx, "N1")
	assert.ErrorAs(t, err, &pre)
	assert.Zero(t, fake.removeCalls)
}

// TestCommandFailurePropagates tests that command failures surface as-is
// with no retry and no hint
func TestCommandFailurePropagates(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	fake.deactivateErr = &controller.ServerRejectedError{
		Op: "Deactivate", Node: "N1", StatusCode: 409, Message: "deactivation in progress",
	}
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	err = rec.Deactivate(ctx, "N1", types.IntentPause)
	assert.Error(t, err)

	var rejected *controller.ServerRejectedError
	assert.ErrorAs(t, err, &rejected)
	assert.Equal(t, 1, fake.deactivateCalls, "no automatic retry")

	st, _ := rec.State("N1")
	assert.Equal(t, types.ExpectedStatusNone, st.Expected, "failed command sets no hint")
}

// TestPollFailureKeepsLastSnapshot tests stale-data semantics
func TestPollFailureKeepsLastSnapshot(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	fake.setErrors(&controller.NetworkError{Op: "GetNode", Node: "N1", Err: errors.New("connection refused")})

	_, err = rec.Observe(ctx, "N1")
	assert.Error(t, err)

	st, stateErr := rec.State("N1")
	require.NoError(t, stateErr)
	require.NotNil(t, st.Snapshot, "last snapshot retained on poll failure")
	assert.Equal(t, types.NodeStatusUp, st.Snapshot.Node.Status)
	assert.False(t, st.Lost)
}

// TestPollFailureKeepsHint tests that only a successful poll clears the
// expected status
func TestPollFailureKeepsHint(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusDown)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)
	require.NoError(t, rec.Activate(ctx, "N1"))

	fake.setErrors(&controller.NetworkError{Op: "GetNode", Node: "N1", Err: errors.New("timeout")})
	_, _ = rec.Observe(ctx, "N1")

	st, _ := rec.State("N1")
	assert.Equal(t, types.ExpectedStatusUp, st.Expected, "failed poll must not clear the hint")
}

// TestNotFoundIsTerminal tests that a removed node is marked lost
func TestNotFoundIsTerminal(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	fake.mu.Lock()
	fake.nodeErr = fmt.Errorf("GetNode N1: %w", controller.ErrNotFound)
	fake.mu.Unlock()

	_, err = rec.Observe(ctx, "N1")
	assert.ErrorIs(t, err, controller.ErrNotFound)

	st, stateErr := rec.State("N1")
	require.NoError(t, stateErr)
	assert.True(t, st.Lost)
	assert.NotNil(t, st.Snapshot, "last snapshot retained for display")
}

// TestPartialPollDiscarded tests that a poll only counts when all three
// fetches succeed
func TestPartialPollDiscarded(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	fake.loadErr = &controller.NetworkError{Op: "GetLoadInformation", Node: "N1", Err: errors.New("reset")}
	rec := New(fake, Options{})

	_, err := rec.Observe(context.Background(), "N1")
	assert.Error(t, err)

	st, stateErr := rec.State("N1")
	require.NoError(t, stateErr)
	assert.Nil(t, st.Snapshot, "partial result must not become a snapshot")
}

// TestDuplicateMetricNamesRejected tests the load snapshot invariant
func TestDuplicateMetricNamesRejected(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	fake.load.Metrics = append(fake.load.Metrics, types.LoadMetric{Name: "Cpu", NodeLoad: 1})
	rec := New(fake, Options{})

	_, err := rec.Observe(context.Background(), "N1")
	assert.Error(t, err)

	st, _ := rec.State("N1")
	assert.Nil(t, st.Snapshot)
}

// TestRestartPinsInstanceID tests the restart dispatch
func TestRestartPinsInstanceID(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)

	require.NoError(t, rec.Restart(ctx, "N1"))
	assert.Equal(t, "133001", fake.lastInstanceID)

	st, _ := rec.State("N1")
	assert.Equal(t, types.ExpectedStatusNone, st.Expected, "restart sets no hint")
}

// TestRestartWithoutSnapshotRefused tests the no-snapshot edge
func TestRestartWithoutSnapshotRefused(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	fake.setErrors(&controller.NetworkError{Op: "GetNode", Node: "N1", Err: errors.New("down")})
	rec := New(fake, Options{})
	ctx := context.Background()

	_, _ = rec.Observe(ctx, "N1")

	err := rec.Restart(ctx, "N1")
	assert.Error(t, err)

	var pre *gate.PreconditionError
	assert.ErrorAs(t, err, &pre)
	assert.Zero(t, fake.restartCalls)
}

// TestUntrack tests teardown semantics
func TestUntrack(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusDown)
	rec := New(fake, Options{})
	ctx := context.Background()

	_, err := rec.Observe(ctx, "N1")
	require.NoError(t, err)
	require.NoError(t, rec.Activate(ctx, "N1"))

	rec.Untrack("N1")

	_, err = rec.State("N1")
	assert.ErrorIs(t, err, ErrNotTracked)

	err = rec.Activate(ctx, "N1")
	assert.ErrorIs(t, err, ErrNotTracked)

	// re-tracking starts clean: the old hint is gone
	_, err = rec.Observe(ctx, "N1")
	require.NoError(t, err)
	st, _ := rec.State("N1")
	assert.Equal(t, types.ExpectedStatusNone, st.Expected)
}

// TestTrackLoopPollsPeriodically tests the background poll loop
func TestTrackLoopPollsPeriodically(t *testing.T) {
	fake := newFakeController("N1", types.NodeStatusUp)
	rec := New(fake, Options{PollInterval: 10 * time.Millisecond})

	rec.Track("N1")
	defer rec.Stop()

	assert.Eventually(t, func() bool {
		st, err := rec.State("N1")
		return err == nil && st.Snapshot != nil
	}, time.Second, 5*time.Millisecond)

	fake.setStatus(types.NodeStatusDisabling)

	assert.Eventually(t, func() bool {
		st, err := rec.State("N1")
		return err == nil && st.Snapshot != nil &&
			st.Snapshot.Node.Status == types.NodeStatusDisabling
	}, time.Second, 5*time.Millisecond)
}

// TestNodesAreIndependent tests that one node's failure does not stall
// another node
func TestNodesAreIndependent(t *testing.T) {
	healthy := newFakeController("N1", types.NodeStatusUp)
	rec := New(&splitController{
		good: healthy,
		bad:  "N2",
	}, Options{PollInterval: 10 * time.Millisecond})

	rec.Track("N1")
	rec.Track("N2")
	defer rec.Stop()

	assert.Eventually(t, func() bool {
		st, err := rec.State("N1")
		return err == nil && st.Snapshot != nil
	}, time.Second, 5*time.Millisecond)

	st, err := rec.State("N2")
	require.NoError(t, err)
	assert.Nil(t, st.Snapshot)
}

// splitController serves one healthy node and fails every call for the
// other
type splitController struct {
	good *fakeController
	bad  string
}

func (s *splitController) failure(op string) error {
	return &controller.NetworkError{Op: op, Node: s.bad, Err: errors.New("unreachable")}
}

func (s *splitController) GetNode(ctx context.Context, name string) (types.Node, error) {
	if name == s.bad {
		return types.Node{}, s.failure("GetNode")
	}
	return s.good.GetNode(ctx, name)
}

func (s *splitController) GetLoadInformation(ctx context.Context, name string) (types.LoadInformation, error) {
	if name == s.bad {
		return types.LoadInformation{}, s.failure("GetLoadInformation")
	}
	return s.good.GetLoadInformation(ctx, name)
}

func (s *splitController) GetHealth(ctx context.Context, name string, filter health.EventsFilter) (types.Health, error) {
	if name == s.bad {
		return types.Health{}, s.failure("GetHealth")
	}
	return s.good.GetHealth(ctx, name, filter)
}

func (s *splitController) Activate(ctx context.Context, name string) error {
	return s.good.Activate(ctx, name)
}

func (s *splitController) Deactivate(ctx context.Context, name string, intent types.DeactivationIntent) error {
	return s.good.Deactivate(ctx, name, intent)
}

func (s *splitController) RemoveNodeState(ctx context.Context, name string) error {
	return s.good.RemoveNodeState(ctx, name)
}

func (s *splitController) Restart(ctx context.Context, name, instanceID string) error {
	return s.good.Restart(ctx, name, instanceID)
}
