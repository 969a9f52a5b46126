/*
Package metrics exposes Prometheus instrumentation for Drover.

Metrics are package-level collectors registered in init and served through
Handler on the status server's /metrics endpoint. The reconciler records
poll outcomes and durations, command outcomes, per-metric load ratios, and
health event counts; gauges for tracked nodes and active expected-status
hints describe the reconciler's working set.

Outcome label values are shared between polls and commands and enumerate
the client error taxonomy: success, network_failure, not_found,
auth_failure, server_rejected, precondition_failed.
*/
package metrics
