package types

import (
	"time"
)

// Node represents a cluster node as reported by the controller.
// A Node is a snapshot: each poll replaces the whole value, fields are
// never merged across polls.
type Node struct {
	ID            string     `json:"id"`
	Status        NodeStatus `json:"status"`
	UpgradeDomain string     `json:"upgradeDomain"`
	FaultDomain   string     `json:"faultDomain"`
	UpTimeSeconds int64      `json:"upTimeSeconds"`
	InstanceID    string     `json:"instanceId"`
}

// NodeStatus represents the controller-reported state of a node
type NodeStatus string

const (
	NodeStatusInvalid   NodeStatus = "invalid"
	NodeStatusUp        NodeStatus = "up"
	NodeStatusDown      NodeStatus = "down"
	NodeStatusDisabling NodeStatus = "disabling"
	NodeStatusDisabled  NodeStatus = "disabled"
)

// ExpectedStatus is the client-side optimistic hint set after a lifecycle
// command is acknowledged and cleared on the next successful poll. It exists
// to bridge the latency window between acknowledgment and poll confirmation;
// the controller remains authoritative.
type ExpectedStatus string

const (
	ExpectedStatusNone     ExpectedStatus = ""
	ExpectedStatusUp       ExpectedStatus = "up"
	ExpectedStatusDisabled ExpectedStatus = "disabled"
)

// DeactivationIntent is the severity of a deactivation request. Values are
// passed through to the controller verbatim and not interpreted client-side.
type DeactivationIntent int

const (
	IntentPause      DeactivationIntent = 1
	IntentRestart    DeactivationIntent = 2
	IntentRemoveData DeactivationIntent = 3
)

// String returns the CLI name of the intent
func (i DeactivationIntent) String() string {
	switch i {
	case IntentPause:
		return "pause"
	case IntentRestart:
		return "restart"
	case IntentRemoveData:
		return "remove-data"
	default:
		return "unknown"
	}
}

// ParseIntent parses a CLI intent name
func ParseIntent(s string) (DeactivationIntent, bool) {
	switch s {
	case "pause":
		return IntentPause, true
	case "restart":
		return IntentRestart, true
	case "remove-data":
		return IntentRemoveData, true
	default:
		return 0, false
	}
}

// LoadMetric is one load entry reported by the controller.
// NodeCapacity <= 0 means the metric is uncapacitated.
type LoadMetric struct {
	Name         string  `json:"name"`
	NodeLoad     float64 `json:"nodeLoad"`
	NodeCapacity float64 `json:"nodeCapacity"`
}

// LoadInformation holds the ordered load metrics of one node.
// Metric names are unique within one snapshot.
type LoadInformation struct {
	NodeID  string       `json:"nodeId"`
	Metrics []LoadMetric `json:"metrics"`
}

// HealthState is an aggregate or per-event health severity
type HealthState string

const (
	HealthStateInvalid HealthState = "invalid"
	HealthStateOk      HealthState = "ok"
	HealthStateWarning HealthState = "warning"
	HealthStateError   HealthState = "error"
	HealthStateUnknown HealthState = "unknown"
)

// HealthEvent is a single health report attached to a node
type HealthEvent struct {
	SourceID    string      `json:"sourceId"`
	Property    string      `json:"property"`
	State       HealthState `json:"state"`
	Description string      `json:"description"`
	SequenceNum int64       `json:"sequenceNumber"`
	IssuedAt    time.Time   `json:"issuedAt"`
}

// Health is the node health snapshot: aggregate state plus the events that
// passed the caller-specified filter when it was fetched.
type Health struct {
	NodeID         string        `json:"nodeId"`
	AggregateState HealthState   `json:"aggregateState"`
	Events         []HealthEvent `json:"events"`
}

// NodeSnapshot bundles everything one poll produced for one node. Snapshots
// are replaced wholesale on each successful poll; observers must treat them
// as replacements, not incremental patches.
type NodeSnapshot struct {
	Node       Node            `json:"node"`
	Load       LoadInformation `json:"load"`
	Health     Health          `json:"health"`
	ObservedAt time.Time       `json:"observedAt"`
}
