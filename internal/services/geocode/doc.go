// Package geocode implements a small reverse-geocoding client.
//
// The client speaks the LocationIQ/Nominatim style `reverse` endpoint, returns a
// Place with the address parts geocluster uses for folder names, and retries
// transient failures (timeouts, 408, 429, 5xx) with capped exponential backoff
// that honours Retry-After. Callers own the context; the client never retries
// once it is cancelled.
package geocode
