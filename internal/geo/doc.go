// Package geo holds the coordinate model shared by ingestion, clustering and
// naming.
//
// Coordinates are decimal degrees. Distances are great-circle meters computed
// with the haversine formula from github.com/paulmach/orb/geo. A coordinate at
// the origin or with a NaN ordinate is treated as "no fix" and never reaches
// the clusterer as a usable position.
package geo
