package reconciler

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/drover/pkg/controller"
	"github.com/cuemby/drover/pkg/events"
	"github.com/cuemby/drover/pkg/health"
	"github.com/cuemby/drover/pkg/load"
	"github.com/cuemby/drover/pkg/metrics"
	"github.com/cuemby/drover/pkg/types"
)

// pollOnce performs one full poll of the node: descriptor, load, and health
// fetched as three parallel calls. All three must succeed for the poll to
// count; a partial result is discarded and the last snapshot retained.
// terminal is true when polling should stop for good (node lost, or
// untracked).
func (r *Reconciler) pollOnce(ctx context.Context, w *watcher, logger zerolog.Logger) (terminal bool, err error) {
	w.op.Lock()
	defer w.op.Unlock()

	timer := metrics.NewTimer()

	var (
		node       types.Node
		loadInfo   types.LoadInformation
		healthInfo types.Health
		nodeErr    error
		loadErr    error
		healthErr  error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		node, nodeErr = r.api.GetNode(ctx, w.id)
	}()
	go func() {
		defer wg.Done()
		loadInfo, loadErr = r.api.GetLoadInformation(ctx, w.id)
	}()
	go func() {
		defer wg.Done()
		healthInfo, healthErr = r.api.GetHealth(ctx, w.id, r.opts.Filter)
	}()
	wg.Wait()

	timer.ObserveDuration(metrics.PollDuration)

	// Untracked while in flight: the completion must not touch anything
	if ctx.Err() != nil {
		return true, ctx.Err()
	}

	if err := firstError(nodeErr, loadErr, healthErr); err != nil {
		outcome := outcomeForError(err)
		metrics.PollsTotal.WithLabelValues(outcome).Inc()

		if errors.Is(err, controller.ErrNotFound) {
			// Node removed from the cluster; terminal for tracking
			w.mu.Lock()
			w.lost = true
			w.mu.Unlock()

			logger.Warn().Err(err).Msg("node no longer known to controller, stopping poll loop")
			r.publish(&events.Event{
				Type:    events.EventNodeLost,
				NodeID:  w.id,
				Message: err.Error(),
			})
			return true, err
		}

		// Stale data, never fatal: keep the last snapshot and try again
		logger.Warn().Err(err).Msg("poll failed, keeping last snapshot")
		r.publish(&events.Event{
			Type:    events.EventPollFailed,
			NodeID:  w.id,
			Message: err.Error(),
		})
		return false, err
	}

	if err := load.Validate(loadInfo); err != nil {
		metrics.PollsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		logger.Warn().Err(err).Msg("discarding snapshot with invalid load information")
		r.publish(&events.Event{
			Type:    events.EventPollFailed,
			NodeID:  w.id,
			Message: err.Error(),
		})
		return false, err
	}

	snapshot := &types.NodeSnapshot{
		Node:       node,
		Load:       loadInfo,
		Health:     healthInfo,
		ObservedAt: timer.StartedAt(),
	}
	r.apply(w, snapshot, logger)
	metrics.PollsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return false, nil
}

// apply installs a fresh snapshot: replace wholesale, clear the hint
// unconditionally, persist, export gauges.
func (r *Reconciler) apply(w *watcher, snapshot *types.NodeSnapshot, logger zerolog.Logger) {
	w.mu.Lock()
	prev := w.snapshot
	w.snapshot = snapshot
	w.mu.Unlock()

	// Fresh data from the server trumps any client-side hint, confirmed
	// or not
	r.tracker.Clear(w.id)
	metrics.ExpectedHintsActive.Set(float64(r.tracker.Len()))

	if prev != nil && prev.Node.Status != snapshot.Node.Status {
		logger.Info().
			Str("from", string(prev.Node.Status)).
			Str("to", string(snapshot.Node.Status)).
			Msg("node status changed")
		r.publish(&events.Event{
			Type:   events.EventNodeStatusChanged,
			NodeID: w.id,
			Metadata: map[string]string{
				"from": string(prev.Node.Status),
				"to":   string(snapshot.Node.Status),
			},
		})
	}

	if r.opts.Store != nil {
		if err := r.opts.Store.PutSnapshot(snapshot); err != nil {
			logger.Error().Err(err).Msg("failed to cache snapshot")
		}
	}

	r.export(snapshot)
}

// export publishes the snapshot's gauges
func (r *Reconciler) export(snapshot *types.NodeSnapshot) {
	id := snapshot.Node.ID

	statuses := []types.NodeStatus{
		types.NodeStatusUp,
		types.NodeStatusDown,
		types.NodeStatusDisabling,
		types.NodeStatusDisabled,
		types.NodeStatusInvalid,
	}
	for _, s := range statuses {
		v := 0.0
		if s == snapshot.Node.Status {
			v = 1.0
		}
		metrics.NodeStatus.WithLabelValues(id, string(s)).Set(v)
	}

	for _, m := range snapshot.Load.Metrics {
		metrics.LoadCapacityRatio.WithLabelValues(id, m.Name).Set(load.MetricRatio(m))
	}

	rollup := health.Summarize(snapshot.Health)
	metrics.HealthEventsTotal.WithLabelValues(id, "ok").Set(float64(rollup.OkCount))
	metrics.HealthEventsTotal.WithLabelValues(id, "warning").Set(float64(rollup.WarningCount))
	metrics.HealthEventsTotal.WithLabelValues(id, "error").Set(float64(rollup.ErrorCount))
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// outcomeForError maps the controller error taxonomy to metric labels
func outcomeForError(err error) string {
	switch {
	case errors.Is(err, controller.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, controller.ErrAuth):
		return metrics.OutcomeAuth
	case controller.IsTransient(err):
		return metrics.OutcomeNetwork
	default:
		var rejected *controller.ServerRejectedError
		if errors.As(err, &rejected) {
			return metrics.OutcomeRejected
		}
		return metrics.OutcomeNetwork
	}
}
