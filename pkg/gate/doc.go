/*
Package gate decides which lifecycle commands a node currently accepts.

The gate is a pure function over (polled status, expected-status hint).
The one rule that must hold exactly: while a hint exists, preconditions are
evaluated against the hint, not the polled status. A node polled as Up with
a pending Disabled hint therefore offers Activate, not Deactivate: the
acknowledged deactivation simply has not been observed by a poll yet.

Availability table, evaluated against the effective status:

	activate           down | disabling | disabled
	deactivate         anything but down
	remove-node-state  down
	restart            always
*/
package gate
