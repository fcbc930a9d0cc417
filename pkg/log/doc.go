/*
Package log provides structured logging for the SOS core using zerolog.

A single global Logger is configured once via Init and shared across the
container, partition, schema, and index packages. Context loggers attach a
container path, schema name, or partition name to every record so that
concurrent operations on multiple containers can be told apart in the log
stream.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.Info("container opened")

	clog := log.WithContainer(path)
	clog.Info().Str("partition", name).Msg("partition created")

# Levels

Debug is for allocator/index internals, Info for lifecycle events
(container open/close, partition state changes, schema registration),
Warn for recoverable anomalies (partial obj_index failures awaiting
compensation), and Error/Fatal for propagated store failures.
*/
package log
