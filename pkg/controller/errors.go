package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the node is no longer known to the controller.
	// Terminal for that node's tracking; the caller should stop polling it.
	ErrNotFound = errors.New("node not found")

	// ErrAuth indicates the controller rejected our credentials
	ErrAuth = errors.New("authentication rejected")
)

// NetworkError wraps transport-level failures, including per-call timeouts.
// Transient: the caller keeps its last-known snapshot and tries again on the
// next poll tick.
type NetworkError struct {
	Op   string
	Node string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network failure: %v", e.Op, e.Node, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerRejectedError indicates the controller returned an error for a
// syntactically valid request, e.g. activating a node that is already
// active. Never retried automatically.
type ServerRejectedError struct {
	Op         string
	Node       string
	StatusCode int
	Message    string
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("%s %s: controller rejected request (status %d): %s",
		e.Op, e.Node, e.StatusCode, e.Message)
}

// IsTransient reports whether the error is a transport-level failure that a
// later poll may clear on its own
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
