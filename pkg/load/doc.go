/*
Package load derives display and rollup values from node load metrics.

All functions are pure. The two edge rules worth knowing: an uncapacitated
metric (capacity absent or <= 0) has ratio exactly 0 rather than an error or
NaN, and system metrics are recognized purely by the literal double
underscore prefix and suffix on the name ("__ClusterCpu__"), minimum length
four, case-sensitive.
*/
package load
