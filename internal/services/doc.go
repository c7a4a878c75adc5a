// Package services holds the failure classes and run-scoped context shared by
// every pipeline stage.
//
// Errors are tagged with one of the exported markers through Wrap so callers
// can tell fatal preconditions from per-item problems with errors.Is, and the
// CLI can pick an exit status with ExitCode. WithRunID and WithStage stamp the
// context that logging.WithContext reads.
package services
