// Package config loads, normalizes, and validates geocluster configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEOCLUSTER_API_KEY, including values declared in a .env file in the
// working directory. Command-line flags are layered on top by the CLI after
// Load returns.
package config
