/*
Package storage caches last-known node snapshots in BoltDB.

The cache lets `drover node status` answer from stale data when the
controller is unreachable and gives a restarted watch daemon context before
its first poll completes. Values are JSON-encoded NodeSnapshots keyed by
node ID, one bucket, upsert on every successful poll.

Expected-status hints are never written here: a hint only has meaning
between a command acknowledgment and the next poll of the same process, and
a restart gets a fresh poll anyway.
*/
package storage
