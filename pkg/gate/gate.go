package gate

import (
	"fmt"

	"github.com/cuemby/drover/pkg/types"
)

// State is the gate's view of one node: the last polled status plus the
// expected-status hint, if any.
type State struct {
	Status   types.NodeStatus
	Expected types.ExpectedStatus
}

// Effective returns the status the gate evaluates preconditions against.
// While a hint exists it wins over the polled status; this is what stops a
// user from re-issuing a stale action before the next poll has observed the
// previous command's effect.
func (s State) Effective() types.NodeStatus {
	switch s.Expected {
	case types.ExpectedStatusUp:
		return types.NodeStatusUp
	case types.ExpectedStatusDisabled:
		return types.NodeStatusDisabled
	default:
		return s.Status
	}
}

// Command is a lifecycle action with a pure availability predicate. It
// carries no transport or presentation concerns; the dispatcher owns
// execution.
type Command struct {
	Name         string
	precondition func(types.NodeStatus) bool
}

var (
	Activate = Command{
		Name: "activate",
		precondition: func(s types.NodeStatus) bool {
			return s == types.NodeStatusDown ||
				s == types.NodeStatusDisabling ||
				s == types.NodeStatusDisabled
		},
	}

	Deactivate = Command{
		Name: "deactivate",
		precondition: func(s types.NodeStatus) bool {
			return s != types.NodeStatusDown
		},
	}

	RemoveNodeState = Command{
		Name: "remove-node-state",
		precondition: func(s types.NodeStatus) bool {
			return s == types.NodeStatusDown
		},
	}

	Restart = Command{
		Name: "restart",
		precondition: func(types.NodeStatus) bool {
			return true
		},
	}
)

// Commands lists all lifecycle commands in display order
var Commands = []Command{Activate, Deactivate, RemoveNodeState, Restart}

// Enabled reports whether the command may be issued in the given state
func (c Command) Enabled(s State) bool {
	return c.precondition(s.Effective())
}

// Check returns a PreconditionError if the command is not enabled. The
// dispatcher calls this before touching the network, so a refused command
// never leaves the process.
func (c Command) Check(s State) error {
	if c.Enabled(s) {
		return nil
	}
	return &PreconditionError{Command: c.Name, State: s}
}

// EnabledCommands returns the set of commands available in the given state
func EnabledCommands(s State) []Command {
	var out []Command
	for _, c := range Commands {
		if c.Enabled(s) {
			out = append(out, c)
		}
	}
	return out
}

// PreconditionError reports a client-side gate refusal. It is raised
// synchronously and never reaches the network.
type PreconditionError struct {
	Command string
	State   State
}

func (e *PreconditionError) Error() string {
	if e.State.Expected != types.ExpectedStatusNone {
		return fmt.Sprintf("%s not allowed: node status %s (pending transition to %s)",
			e.Command, e.State.Status, e.State.Expected)
	}
	return fmt.Sprintf("%s not allowed: node status %s", e.Command, e.State.Status)
}
