// Package pipeline runs one organize pass end to end.
//
// A run verifies its preconditions, takes the run lock, and then executes the
// stages in order: ingest, cluster, merge, relocate, name and materialize.
// Every log line carries the run ID and the current stage. Only precondition,
// configuration and cancellation errors abort a run; per-item failures are
// reported in the Result.
package pipeline
