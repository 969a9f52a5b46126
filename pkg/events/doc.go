/*
Package events provides a broadcast broker for reconciler events.

The broker fans events out to any number of subscribers over buffered
channels; a subscriber that falls behind loses events rather than blocking
the reconciler. The watch CLI subscribes to render status changes and
command activity; anything else (alerting hooks, tests) can subscribe the
same way.
*/
package events
