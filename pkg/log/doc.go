/*
Package log provides structured logging for Drover using zerolog.

The package wraps zerolog behind a global logger initialized once via Init,
with JSON output for production and a console writer for interactive use.
Child loggers carry context fields so every line from a component or a node
watcher is attributable without repeating fields at each call site.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	recLog := log.WithComponent("reconciler")
	recLog.Info().Str("node_id", "N1").Msg("node tracked")

	nodeLog := log.WithNodeID("N1")
	nodeLog.Warn().Err(err).Msg("poll failed, keeping stale snapshot")

Levels are debug/info/warn/error; unknown levels fall back to info.
*/
package log
