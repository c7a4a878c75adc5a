// Package logging builds the slog loggers geocluster writes through.
//
// Terminals get a compact console format tagged with the pipeline stage; the
// per-user log directory receives a JSON run log carrying the run ID on every
// line. Component level overrides, context tagging and a no-op logger for
// tests live here too.
package logging
