package health

import (
	"strconv"
	"strings"

	"github.com/cuemby/drover/pkg/types"
)

// EventsFilter selects which health events the controller returns with a
// node health snapshot. Flags combine with bitwise OR and are passed to the
// controller verbatim as a decimal string.
type EventsFilter uint32

const (
	FilterNone    EventsFilter = 0
	FilterOk      EventsFilter = 1
	FilterWarning EventsFilter = 2
	FilterError   EventsFilter = 4
	FilterAll     EventsFilter = FilterOk | FilterWarning | FilterError
)

// DefaultFilter is what the reconciler requests unless configured otherwise:
// actionable events only.
const DefaultFilter = FilterWarning | FilterError

// Query returns the wire form of the filter for the Health query string
func (f EventsFilter) Query() string {
	return strconv.FormatUint(uint64(f), 10)
}

// ParseFilter parses a comma-separated flag list ("warning,error", "all",
// "none"). Unknown names are rejected.
func ParseFilter(s string) (EventsFilter, bool) {
	if s == "" {
		return DefaultFilter, true
	}
	var f EventsFilter
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "none":
		case "ok":
			f |= FilterOk
		case "warning":
			f |= FilterWarning
		case "error":
			f |= FilterError
		case "all":
			f |= FilterAll
		default:
			return 0, false
		}
	}
	return f, true
}

// Matches reports whether an event state passes the filter
func (f EventsFilter) Matches(state types.HealthState) bool {
	switch state {
	case types.HealthStateOk:
		return f&FilterOk != 0
	case types.HealthStateWarning:
		return f&FilterWarning != 0
	case types.HealthStateError:
		return f&FilterError != 0
	default:
		return false
	}
}

// Rollup summarizes a node health snapshot for display and metrics export
type Rollup struct {
	AggregateState types.HealthState
	OkCount        int
	WarningCount   int
	ErrorCount     int
	OtherCount     int
}

// Summarize counts the snapshot's events by state
func Summarize(h types.Health) Rollup {
	r := Rollup{AggregateState: h.AggregateState}
	for _, ev := range h.Events {
		switch ev.State {
		case types.HealthStateOk:
			r.OkCount++
		case types.HealthStateWarning:
			r.WarningCount++
		case types.HealthStateError:
			r.ErrorCount++
		default:
			r.OtherCount++
		}
	}
	return r
}

// severity orders health states for worst-of aggregation
func severity(s types.HealthState) int {
	switch s {
	case types.HealthStateOk:
		return 1
	case types.HealthStateWarning:
		return 2
	case types.HealthStateError:
		return 3
	case types.HealthStateUnknown:
		return 4
	default:
		return 0
	}
}

// Worst returns the most severe of the given states. Unknown outranks
// error: a state we cannot classify must not look healthier than one we can.
func Worst(states ...types.HealthState) types.HealthState {
	worst := types.HealthStateInvalid
	for _, s := range states {
		if severity(s) > severity(worst) {
			worst = s
		}
	}
	return worst
}
