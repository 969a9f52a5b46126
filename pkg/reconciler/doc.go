/*
Package reconciler is Drover's core: a node lifecycle reconciliation client.

For every tracked node it runs one logical actor that (a) polls the
controller for authoritative state, (b) maintains the expected-status hint
bridging command acknowledgment and the next poll, and (c) dispatches
lifecycle commands gated on the effective status.

# Per-Node Actor

All operations against one node (poll fetch and apply, command dispatch)
are serialized on the node's actor lock, so a poll and a command success can
never race to set and clear the hint inconsistently. Distinct nodes share
nothing and proceed concurrently; a slow controller call on one node stalls
only that node. Readers (State, the /nodes endpoint) go through a separate
field lock and never wait on the network.

# Poll Semantics

A poll is three parallel fetches (descriptor, load information, health) and
counts only if all three succeed. On success the snapshot is replaced
wholesale, the expected-status hint is cleared unconditionally (fresh
server data trumps the client hint even when it does not yet confirm the
transition), and the snapshot is written to the cache. On failure the last
snapshot is retained as stale data; only a NotFound is terminal, marking
the node lost and stopping its loop.

# Commands

Activate, Deactivate(intent), RemoveNodeState, and Restart each check the
gate first (a refusal never reaches the network), issue the REST call, and
on acknowledgment set the hint:

	activate           -> expected Up
	deactivate         -> expected Disabled
	remove-node-state  -> none
	restart            -> none

Command failures propagate untouched and are never retried; a lifecycle
command is a user action and not safe to repeat silently.

# Teardown

Untrack cancels the node's in-flight calls and waits the loop out; a call
completing after cancellation mutates nothing. The hint store is in-memory
only; a process restart loses hints and naturally re-polls.
*/
package reconciler
