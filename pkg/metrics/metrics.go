package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Poller metrics
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drover_polls_total",
			Help: "Total number of node polls by outcome",
		},
		[]string{"outcome"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drover_poll_duration_seconds",
			Help:    "Node poll duration in seconds (all three fetches)",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodesTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drover_nodes_tracked",
			Help: "Number of nodes currently tracked by the reconciler",
		},
	)

	NodeStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drover_node_status",
			Help: "Last polled node status (1 for the current status, 0 otherwise)",
		},
		[]string{"node", "status"},
	)

	// Command metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drover_commands_total",
			Help: "Total number of lifecycle commands by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	ExpectedHintsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drover_expected_hints_active",
			Help: "Number of nodes with an active expected-status hint",
		},
	)

	// Load metrics
	LoadCapacityRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drover_load_capacity_ratio",
			Help: "Load/capacity ratio per node and metric (0 for uncapacitated metrics)",
		},
		[]string{"node", "metric"},
	)

	HealthEventsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drover_health_events",
			Help: "Filtered health events in the last snapshot by node and state",
		},
		[]string{"node", "state"},
	)
)

// Poll/command outcome label values
const (
	OutcomeSuccess      = "success"
	OutcomeNetwork      = "network_failure"
	OutcomeNotFound     = "not_found"
	OutcomeAuth         = "auth_failure"
	OutcomeRejected     = "server_rejected"
	OutcomePrecondition = "precondition_failed"
	OutcomeInvalid      = "invalid_snapshot"
)

func init() {
	prometheus.MustRegister(PollsTotal)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(NodesTracked)
	prometheus.MustRegister(NodeStatus)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(ExpectedHintsActive)
	prometheus.MustRegister(LoadCapacityRatio)
	prometheus.MustRegister(HealthEventsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
