// Package preflight verifies the input and output directories before a run
// touches the filesystem.
//
// The input must be a readable directory. The output must be an existing,
// writable and empty directory distinct from the input. RunAll returns one
// Result per check so the CLI can print them, and Verify folds any failures
// into a single error tagged with services.ErrPrecondition.
package preflight
