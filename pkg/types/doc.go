/*
Package types defines the shared data model for Drover.

All entities are plain data snapshots of controller-reported state: Node
(status, domains, up-time), LoadInformation (per-metric load and capacity),
Health (aggregate state plus filtered events), and NodeSnapshot which bundles
the three as the unit of one poll. Entities carry no behavior and no mutable
client-side state; ExpectedStatus, the one piece of client-side state in the
system, lives in the reconciler's tracker and is only *typed* here.

# Snapshot Semantics

A poll replaces snapshots wholesale. Code holding a *NodeSnapshot must never
mutate it and must never assume field-level continuity between two polls; a
node that changed instance ID between snapshots is, for lifecycle purposes,
a different incarnation of the node.

# Status Values

NodeStatus mirrors the controller's node lifecycle:

	up        node is active and serving
	down      node is not running
	disabling deactivation accepted, still draining
	disabled  deactivation complete
	invalid   zero value, never reported by a healthy controller

ExpectedStatus is deliberately narrower (none/up/disabled): it only records
the *direction* of the last acknowledged command, because that is all the
action gate needs during the acknowledgment-to-poll window.
*/
package types
