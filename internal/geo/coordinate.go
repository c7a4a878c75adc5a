package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// ErrDistance marks a distance computation that could not produce a finite
// result for the supplied pair.
var ErrDistance = errors.New("distance computation failed")

// Coordinate is a position in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// New returns the coordinate for the given latitude and longitude.
func New(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// DMS is a sexagesimal degree/minute/second angle.
type DMS struct {
	Degrees float64
	Minutes float64
	Seconds float64
}

// Decimal converts the angle to decimal degrees.
func (d DMS) Decimal() float64 {
	return d.Degrees + d.Minutes/60 + d.Seconds/3600
}

// FromDMS builds a coordinate from latitude and longitude triples. Southern
// latitudes and western longitudes are expressed by the negate flags, which
// mirror the GPS reference tags.
func FromDMS(lat DMS, south bool, lon DMS, west bool) Coordinate {
	c := Coordinate{Lat: lat.Decimal(), Lon: lon.Decimal()}
	if south {
		c.Lat = -c.Lat
	}
	if west {
		c.Lon = -c.Lon
	}
	return c
}

// Usable reports whether the coordinate carries a real fix: neither ordinate
// is NaN and the point is not the origin.
func (c Coordinate) Usable() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat != 0 || c.Lon != 0
}

// Point converts the coordinate to an orb point (longitude first).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// String renders the coordinate as "lat,lon" with the shortest exact
// representation of each ordinate.
func (c Coordinate) String() string {
	return formatOrdinate(c.Lat) + "," + formatOrdinate(c.Lon)
}

func formatOrdinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatOrdinate exposes the ordinate formatting used for literal names.
func FormatOrdinate(v float64) string {
	return formatOrdinate(v)
}

// Distance returns the great-circle distance in meters between a and b.
// Ordinates outside the valid range, non-finite inputs, and non-finite
// results are reported as ErrDistance.
func Distance(a, b Coordinate) (float64, error) {
	if err := validate(a); err != nil {
		return 0, err
	}
	if err := validate(b); err != nil {
		return 0, err
	}
	d := orbgeo.DistanceHaversine(a.Point(), b.Point())
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: %s to %s", ErrDistance, a, b)
	}
	return d, nil
}

// Within reports whether b lies inside the circle of radius meters centred
// on a. The boundary counts as inside.
func Within(a, b Coordinate, meters float64) (bool, error) {
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d <= meters, nil
}

func validate(c Coordinate) error {
	switch {
	case math.IsNaN(c.Lat), math.IsNaN(c.Lon), math.IsInf(c.Lat, 0), math.IsInf(c.Lon, 0):
		return fmt.Errorf("%w: non-finite coordinate %s", ErrDistance, c)
	case c.Lat < -90 || c.Lat > 90:
		return fmt.Errorf("%w: latitude %s out of range", ErrDistance, formatOrdinate(c.Lat))
	case c.Lon < -180 || c.Lon > 180:
		return fmt.Errorf("%w: longitude %s out of range", ErrDistance, formatOrdinate(c.Lon))
	}
	return nil
}
