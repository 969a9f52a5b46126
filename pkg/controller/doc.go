/*
Package controller is the REST client for the cluster controller API.

It covers the node surface Drover needs: three read endpoints (descriptor,
load information, health) and four lifecycle commands (activate, deactivate,
remove node state, restart). Wire types stay private to this package; public
methods speak pkg/types.

# Error Taxonomy

Callers branch on four shapes:

	NetworkError         transport failure or per-call timeout; transient
	ErrNotFound          node gone from the cluster; terminal for tracking
	ErrAuth              credentials rejected
	ServerRejectedError  controller refused a syntactically valid request

POST commands are not idempotent and are never retried here; a failed
command is reported as-is and only a fresh user action may repeat it. GETs
carry no such restriction but the client leaves retry policy to the caller's
poll loop.

Every request gets a bounded timeout (Config.Timeout, default 10s) so a hung
controller cannot suspend a poll loop indefinitely; a timeout surfaces as a
NetworkError like any other transport fault.
*/
package controller
