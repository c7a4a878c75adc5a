// Package materialize writes a named clustering into the output directory:
// one folder per cluster holding copies of its members. Sources are never
// moved or modified, existing files are never overwritten, and a failure on
// one item is recorded in the Report while the rest continue.
package materialize
