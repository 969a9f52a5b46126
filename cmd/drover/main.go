package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/drover/pkg/api"
	"github.com/cuemby/drover/pkg/config"
	"github.com/cuemby/drover/pkg/controller"
	"github.com/cuemby/drover/pkg/events"
	"github.com/cuemby/drover/pkg/log"
	"github.com/cuemby/drover/pkg/reconciler"
	"github.com/cuemby/drover/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagConfig     string
	flagController string
	flagToken      string
	flagLogLevel   string
	flagJSONLogs   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drover",
	Short: "Drover - Node lifecycle reconciler for cluster controllers",
	Long: `Drover watches cluster nodes through the controller's REST API and
drives their lifecycle: it polls status, load, and health, keeps an
expected-status hint between a command's acknowledgment and the next
poll, and only offers the commands a node can currently accept.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Drover version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&flagController, "controller", "", "controller base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "controller bearer token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "log JSON instead of console output")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(nodeCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <node> [node...]",
	Short: "Watch nodes and serve status locally",
	Long: `Watch polls the given nodes continuously, caches their snapshots, and
serves /health, /ready, /nodes, and /metrics on the status address.
Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := setup()
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		rec := reconciler.New(client, reconciler.Options{
			PollInterval: cfg.PollInterval,
			Filter:       cfg.Filter(),
			Store:        store,
			Broker:       broker,
		})
		for _, node := range args {
			rec.Track(node)
		}
		defer rec.Stop()

		statusServer := api.NewStatusServer(rec)
		errCh := make(chan error, 1)
		go func() {
			if err := statusServer.Start(cfg.StatusAddr); err != nil {
				errCh <- fmt.Errorf("status server error: %w", err)
			}
		}()

		watchLog := log.WithComponent("watch")
		watchLog.Info().
			Int("nodes", len(args)).
			Str("status_addr", cfg.StatusAddr).
			Msg("watching nodes")

		sub := broker.Subscribe()
		defer broker.Unsubscribe(sub)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case ev := <-sub:
				printEvent(ev)
			case err := <-errCh:
				return err
			case <-sigCh:
				fmt.Println("\nShutting down...")
				return nil
			}
		}
	},
}

func printEvent(ev *events.Event) {
	switch ev.Type {
	case events.EventNodeStatusChanged:
		fmt.Printf("%s  %s: %s -> %s\n",
			ev.Timestamp.Format("15:04:05"), ev.NodeID,
			ev.Metadata["from"], ev.Metadata["to"])
	case events.EventNodeLost:
		fmt.Printf("%s  %s: removed from cluster\n",
			ev.Timestamp.Format("15:04:05"), ev.NodeID)
	case events.EventCommandIssued:
		fmt.Printf("%s  %s: %s acknowledged\n",
			ev.Timestamp.Format("15:04:05"), ev.NodeID, ev.Metadata["command"])
	case events.EventCommandFailed:
		fmt.Printf("%s  %s: command failed: %s\n",
			ev.Timestamp.Format("15:04:05"), ev.NodeID, ev.Message)
	}
}

// setup loads config, applies flag overrides, initializes logging, and
// builds the controller client
func setup() (config.Config, *controller.Client, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, nil, err
	}

	if flagController != "" {
		cfg.Controller = flagController
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagJSONLogs {
		cfg.LogJSON = true
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})

	if cfg.Controller == "" {
		return config.Config{}, nil, fmt.Errorf("controller endpoint required (--controller or config file)")
	}

	client, err := controller.NewClient(controller.Config{
		Endpoint: cfg.Controller,
		Token:    cfg.Token,
		Timeout:  cfg.RequestTimeout,
	})
	if err != nil {
		return config.Config{}, nil, err
	}

	return cfg, client, nil
}

func openStore(cfg config.Config) (storage.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", cfg.DataDir, err)
	}
	return storage.NewBoltStore(cfg.DataDir)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "drover.yaml"
	}
	return filepath.Join(home, ".drover", "config.yaml")
}
