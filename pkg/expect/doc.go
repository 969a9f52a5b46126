/*
Package expect tracks per-node expected-status hints.

A hint is set when a lifecycle command is acknowledged and cleared on the
next successful poll, whether or not that poll confirms the transition. The
hint's only consumer is the action gate, which evaluates preconditions
against the hint while one exists. Keeping the store keyed by node ID (and
out of the entity structs) keeps snapshots immutable and the tracker
trivially testable.
*/
package expect
