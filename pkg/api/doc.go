/*
Package api serves the watch daemon's local observability endpoints.

	/health   liveness (process is up)
	/ready    readiness (at least one node tracked)
	/nodes    tracked node views: snapshot, expected-status hint, enabled commands
	/metrics  Prometheus metrics

The server binds loopback by default; it is an operator surface, not part
of the controller API.
*/
package api
