/*
Package health interprets controller-reported node health.

Drover does not probe nodes itself; the controller owns health evaluation.
This package covers the client side of that contract: the EventsFilter flags
sent with a health fetch (which events the controller should include), and
pure rollup helpers (Summarize, Worst) over the returned snapshot.

Filter flags are additive bits. The reconciler default is Warning|Error so a
watch session only carries actionable events; pass "all" to see Ok events
too. The filter is applied by the controller at fetch time, so changing it
takes effect on the next poll, not retroactively.
*/
package health
