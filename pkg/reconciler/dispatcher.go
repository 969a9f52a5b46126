package reconciler

import (
	"context"
	"errors"

	"github.com/cuemby/drover/pkg/events"
	"github.com/cuemby/drover/pkg/gate"
	"github.com/cuemby/drover/pkg/log"
	"github.com/cuemby/drover/pkg/metrics"
	"github.com/cuemby/drover/pkg/types"
)

// Activate requests activation of the node. On acknowledgment the expected
// status becomes Up until the next successful poll.
func (r *Reconciler) Activate(ctx context.Context, nodeID string) error {
	return r.dispatch(ctx, nodeID, gate.Activate, types.ExpectedStatusUp,
		func(ctx context.Context, _ *types.NodeSnapshot) error {
			return r.api.Activate(ctx, nodeID)
		})
}

// Deactivate requests deactivation with the given intent. On acknowledgment
// the expected status becomes Disabled until the next successful poll.
func (r *Reconciler) Deactivate(ctx context.Context, nodeID string, intent types.DeactivationIntent) error {
	return r.dispatch(ctx, nodeID, gate.Deactivate, types.ExpectedStatusDisabled,
		func(ctx context.Context, _ *types.NodeSnapshot) error {
			return r.api.Deactivate(ctx, nodeID, intent)
		})
}

// RemoveNodeState tells the controller the down node's persisted state is
// permanently gone. Sets no expected status.
func (r *Reconciler) RemoveNodeState(ctx context.Context, nodeID string) error {
	return r.dispatch(ctx, nodeID, gate.RemoveNodeState, types.ExpectedStatusNone,
		func(ctx context.Context, _ *types.NodeSnapshot) error {
			return r.api.RemoveNodeState(ctx, nodeID)
		})
}

// Restart restarts the node, pinned to the instance observed by the last
// poll. Without a snapshot there is no instance to pin to and the command
// is refused client-side.
func (r *Reconciler) Restart(ctx context.Context, nodeID string) error {
	return r.dispatch(ctx, nodeID, gate.Restart, types.ExpectedStatusNone,
		func(ctx context.Context, snap *types.NodeSnapshot) error {
			if snap == nil {
				return &gate.PreconditionError{
					Command: gate.Restart.Name,
					State:   gate.State{Status: types.NodeStatusInvalid},
				}
			}
			return r.api.Restart(ctx, nodeID, snap.Node.InstanceID)
		})
}

// dispatch runs one lifecycle command through the gate and the controller.
// It holds the node's actor lock for the whole sequence so a command and a
// poll application can never interleave on the same node.
func (r *Reconciler) dispatch(
	ctx context.Context,
	nodeID string,
	cmd gate.Command,
	onSuccess types.ExpectedStatus,
	call func(context.Context, *types.NodeSnapshot) error,
) error {
	w, err := r.watcher(nodeID)
	if err != nil {
		return err
	}

	logger := log.WithCommand(cmd.Name).With().Str("node_id", nodeID).Logger()

	w.op.Lock()
	defer w.op.Unlock()

	w.mu.RLock()
	snap := w.snapshot
	w.mu.RUnlock()

	st := gate.State{Status: types.NodeStatusInvalid, Expected: r.tracker.Get(nodeID)}
	if snap != nil {
		st.Status = snap.Node.Status
	}

	// The gate check is the precondition: a refused command never reaches
	// the network
	if err := cmd.Check(st); err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Name, metrics.OutcomePrecondition).Inc()
		logger.Debug().Err(err).Msg("command refused by gate")
		return err
	}

	if err := call(ctx, snap); err != nil {
		var pre *gate.PreconditionError
		if errors.As(err, &pre) {
			metrics.CommandsTotal.WithLabelValues(cmd.Name, metrics.OutcomePrecondition).Inc()
			logger.Debug().Err(err).Msg("command refused by gate")
			return err
		}

		// No retry: lifecycle commands are not idempotent, only a fresh
		// user action may repeat one
		metrics.CommandsTotal.WithLabelValues(cmd.Name, outcomeForError(err)).Inc()
		logger.Warn().Err(err).Msg("command failed")
		r.publish(&events.Event{
			Type:    events.EventCommandFailed,
			NodeID:  nodeID,
			Message: err.Error(),
			Metadata: map[string]string{
				"command": cmd.Name,
			},
		})
		return err
	}

	// Untracked while the call was in flight: leave no trace
	if _, err := r.watcher(nodeID); err != nil || ctx.Err() != nil {
		return nil
	}

	if onSuccess != types.ExpectedStatusNone {
		r.tracker.Set(nodeID, onSuccess)
		metrics.ExpectedHintsActive.Set(float64(r.tracker.Len()))
	}

	metrics.CommandsTotal.WithLabelValues(cmd.Name, metrics.OutcomeSuccess).Inc()
	logger.Info().Str("expected", string(onSuccess)).Msg("command acknowledged")
	r.publish(&events.Event{
		Type:   events.EventCommandIssued,
		NodeID: nodeID,
		Metadata: map[string]string{
			"command":  cmd.Name,
			"expected": string(onSuccess),
		},
	})
	return nil
}
