// Package cluster implements the geographic grouping engine.
//
// Assign partitions an ordered item sequence into clusters with a greedy
// first-fit scan: each located item joins the first cluster, in creation
// order, whose anchor lies within the threshold, or seeds a new cluster
// anchored at its own coordinate. Items without a usable coordinate land in
// the unclassified bucket. The result depends on input order and is not a
// globally optimal partition.
//
// Merger implementations optionally fold clusters whose anchors are close,
// and Relocate moves timestamped, position-less items from the unclassified
// bucket into the cluster whose members were photographed closest in time.
//
// Every stage takes a Set and returns a new Set; callers hold exclusive
// ownership while a stage runs.
package cluster
