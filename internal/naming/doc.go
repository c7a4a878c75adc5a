// Package naming turns clusters into output folder names.
//
// LiteralNamer renders the anchor as "<lat>_<lon>". GeocodingNamer asks a
// reverse geocoder for a place label, caches the answer per cluster, and falls
// back to the literal name whenever a lookup fails. The unclassified bucket is
// always named UNCLASSIFIED. NameAll names a whole set with bounded
// concurrency and de-duplicates the results.
package naming
