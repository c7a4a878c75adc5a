// Package photo defines the immutable record produced by ingestion and read by
// the clustering stages.
package photo

import (
	"path/filepath"
	"time"

	"geocluster/internal/geo"
)

// Item is a positioned photograph: an identifier plus optional coordinate and
// capture time. Values are fixed at construction.
type Item struct {
	id        string
	coord     geo.Coordinate
	hasCoord  bool
	timestamp time.Time
	hasTime   bool
}

// Option sets an optional field during construction.
type Option func(*Item)

// WithCoordinate attaches a coordinate. Unusable coordinates (origin or NaN)
// are dropped so the item reads as position-less.
func WithCoordinate(c geo.Coordinate) Option {
	return func(i *Item) {
		if !c.Usable() {
			return
		}
		i.coord = c
		i.hasCoord = true
	}
}

// WithTimestamp attaches a capture time. The zero time is ignored.
func WithTimestamp(t time.Time) Option {
	return func(i *Item) {
		if t.IsZero() {
			return
		}
		i.timestamp = t
		i.hasTime = true
	}
}

// New builds an item for the given identifier.
func New(id string, opts ...Option) Item {
	item := Item{id: id}
	for _, opt := range opts {
		opt(&item)
	}
	return item
}

// ID returns the opaque identifier, typically the source path.
func (i Item) ID() string { return i.id }

// Name returns the final path element of the identifier.
func (i Item) Name() string { return filepath.Base(i.id) }

// Coordinate returns the coordinate and whether one is present.
func (i Item) Coordinate() (geo.Coordinate, bool) { return i.coord, i.hasCoord }

// Timestamp returns the capture time and whether one is present.
func (i Item) Timestamp() (time.Time, bool) { return i.timestamp, i.hasTime }

// Located reports whether the item has a usable coordinate.
func (i Item) Located() bool { return i.hasCoord }

// Timed reports whether the item has a capture time.
func (i Item) Timed() bool { return i.hasTime }
