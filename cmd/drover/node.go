package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/drover/pkg/load"
	"github.com/cuemby/drover/pkg/reconciler"
	"github.com/cuemby/drover/pkg/storage"
	"github.com/cuemby/drover/pkg/types"
)

var flagIntent string

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect and manage cluster nodes",
}

func init() {
	nodeDeactivateCmd.Flags().StringVar(&flagIntent, "intent", "pause",
		"deactivation intent: pause, restart, remove-data")

	nodeCmd.AddCommand(nodeStatusCmd)
	nodeCmd.AddCommand(nodeActivateCmd)
	nodeCmd.AddCommand(nodeDeactivateCmd)
	nodeCmd.AddCommand(nodeRemoveStateCmd)
	nodeCmd.AddCommand(nodeRestartCmd)
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status <node>",
	Short: "Show node status, load, and health",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, cleanup, err := oneShot()
		if err != nil {
			return err
		}
		defer cleanup()

		st, pollErr := rec.Observe(cmd.Context(), args[0])
		if st.Snapshot == nil {
			if pollErr != nil {
				return pollErr
			}
			return fmt.Errorf("no data for node %s", args[0])
		}

		printNodeState(st, pollErr)
		return nil
	},
}

var nodeActivateCmd = &cobra.Command{
	Use:   "activate <node>",
	Short: "Activate a deactivated or down node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd.Context(), args[0], func(ctx context.Context, rec *reconciler.Reconciler) error {
			return rec.Activate(ctx, args[0])
		}, "activation requested")
	},
}

var nodeDeactivateCmd = &cobra.Command{
	Use:   "deactivate <node>",
	Short: "Deactivate a node with the given intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, ok := types.ParseIntent(flagIntent)
		if !ok {
			return fmt.Errorf("invalid intent %q (pause, restart, remove-data)", flagIntent)
		}
		return runLifecycle(cmd.Context(), args[0], func(ctx context.Context, rec *reconciler.Reconciler) error {
			return rec.Deactivate(ctx, args[0], intent)
		}, fmt.Sprintf("deactivation requested (intent: %s)", intent))
	},
}

var nodeRemoveStateCmd = &cobra.Command{
	Use:   "remove-state <node>",
	Short: "Tell the controller a down node's persisted state is gone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd.Context(), args[0], func(ctx context.Context, rec *reconciler.Reconciler) error {
			return rec.RemoveNodeState(ctx, args[0])
		}, "node state removal requested")
	},
}

var nodeRestartCmd = &cobra.Command{
	Use:   "restart <node>",
	Short: "Restart a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd.Context(), args[0], func(ctx context.Context, rec *reconciler.Reconciler) error {
			return rec.Restart(ctx, args[0])
		}, "restart requested")
	},
}

// runLifecycle polls once for a fresh gate decision, then dispatches
func runLifecycle(ctx context.Context, nodeID string, op func(context.Context, *reconciler.Reconciler) error, okMsg string) error {
	rec, cleanup, err := oneShot()
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := rec.Observe(ctx, nodeID); err != nil {
		// Gate against cached data if the live poll failed; the gate and
		// the controller still have the final say
		fmt.Printf("Warning: poll failed (%v), using last known state\n", err)
	}

	if err := op(ctx, rec); err != nil {
		return err
	}

	fmt.Printf("✓ %s: %s\n", nodeID, okMsg)
	return nil
}

// oneShot builds a loop-less reconciler over the snapshot cache
func oneShot() (*reconciler.Reconciler, func(), error) {
	cfg, client, err := setup()
	if err != nil {
		return nil, nil, err
	}

	var store storage.Store
	cleanup := func() {}
	if s, err := openStore(cfg); err == nil {
		store = s
		cleanup = func() { s.Close() }
	}

	rec := reconciler.New(client, reconciler.Options{
		PollInterval: cfg.PollInterval,
		Filter:       cfg.Filter(),
		Store:        store,
	})
	return rec, cleanup, nil
}

func printNodeState(st reconciler.NodeState, pollErr error) {
	snap := st.Snapshot

	fmt.Printf("Node:           %s\n", snap.Node.ID)
	fmt.Printf("Status:         %s\n", snap.Node.Status)
	if st.Expected != types.ExpectedStatusNone {
		fmt.Printf("Expected:       %s (awaiting next poll)\n", st.Expected)
	}
	fmt.Printf("Upgrade domain: %s\n", snap.Node.UpgradeDomain)
	fmt.Printf("Fault domain:   %s\n", snap.Node.FaultDomain)
	fmt.Printf("Up time:        %s\n", (time.Duration(snap.Node.UpTimeSeconds) * time.Second).String())
	fmt.Printf("Observed:       %s", snap.ObservedAt.Format(time.RFC3339))
	if pollErr != nil {
		fmt.Printf(" (stale: %v)", pollErr)
	}
	fmt.Println()

	if len(snap.Load.Metrics) > 0 {
		fmt.Println("\nLoad:")
		for _, m := range snap.Load.Metrics {
			marker := ""
			if load.IsSystemMetric(m.Name) {
				marker = " (system)"
			}
			if m.NodeCapacity > 0 {
				fmt.Printf("  %-28s %10.0f / %-10.0f %s%s\n",
					m.Name, m.NodeLoad, m.NodeCapacity,
					load.FormatPercent(load.MetricRatio(m)), marker)
			} else {
				fmt.Printf("  %-28s %10.0f   (uncapacitated)%s\n", m.Name, m.NodeLoad, marker)
			}
		}
	}

	fmt.Printf("\nHealth:         %s\n", snap.Health.AggregateState)
	for _, ev := range snap.Health.Events {
		fmt.Printf("  [%s] %s/%s: %s\n", ev.State, ev.SourceID, ev.Property, ev.Description)
	}

	fmt.Printf("\nAvailable commands: %s\n", strings.Join(st.Enabled, ", "))
}
