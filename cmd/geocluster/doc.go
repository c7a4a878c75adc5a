// Package main hosts the geocluster CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, applies flag overrides and
// hands a validated config to the pipeline runner. Rendering of run summaries
// lives here; clustering, naming and copying live in the internal packages.
package main
