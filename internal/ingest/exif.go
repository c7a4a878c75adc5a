package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"geocluster/internal/geo"
	"geocluster/internal/photo"
)

// ErrNoMetadata reports a file that carries no parseable EXIF block.
var ErrNoMetadata = errors.New("no exif metadata")

// Metadata is what a MetadataReader extracts from one file.
type Metadata struct {
	Coordinate geo.Coordinate
	Located    bool
	Timestamp  time.Time
}

// Item converts the metadata into an immutable photo record.
func (m Metadata) Item(path string) photo.Item {
	opts := make([]photo.Option, 0, 2)
	if m.Located {
		opts = append(opts, photo.WithCoordinate(m.Coordinate))
	}
	opts = append(opts, photo.WithTimestamp(m.Timestamp))
	return photo.New(path, opts...)
}

// MetadataReader extracts metadata from a file on disk.
type MetadataReader interface {
	Read(path string) (Metadata, error)
}

// ExifReader reads GPS and capture time from EXIF.
type ExifReader struct{}

// Read decodes the EXIF block of path. A file with EXIF but no GPS fix yields
// Metadata with Located unset; a file without EXIF yields ErrNoMetadata.
func (ExifReader) Read(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return Metadata{}, fmt.Errorf("%w: %w", ErrNoMetadata, err)
	}

	var md Metadata
	if ts, err := x.DateTime(); err == nil {
		md.Timestamp = ts
	}
	if coord, ok := gpsCoordinate(x); ok {
		md.Coordinate = coord
		md.Located = true
	}
	return md, nil
}

func gpsCoordinate(x *exif.Exif) (geo.Coordinate, bool) {
	lat, err := dmsField(x, exif.GPSLatitude)
	if err != nil {
		return geo.Coordinate{}, false
	}
	lon, err := dmsField(x, exif.GPSLongitude)
	if err != nil {
		return geo.Coordinate{}, false
	}
	south := refField(x, exif.GPSLatitudeRef) == "S"
	west := refField(x, exif.GPSLongitudeRef) == "W"
	return geo.FromDMS(lat, south, lon, west), true
}

func dmsField(x *exif.Exif, name exif.FieldName) (geo.DMS, error) {
	tag, err := x.Get(name)
	if err != nil {
		return geo.DMS{}, err
	}
	if tag.Count < 3 {
		return geo.DMS{}, fmt.Errorf("%s: expected 3 rationals, got %d", name, tag.Count)
	}
	var parts [3]float64
	for i := range parts {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return geo.DMS{}, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		if den == 0 {
			return geo.DMS{}, fmt.Errorf("%s[%d]: zero denominator", name, i)
		}
		parts[i] = float64(num) / float64(den)
	}
	return geo.DMS{Degrees: parts[0], Minutes: parts[1], Seconds: parts[2]}, nil
}

func refField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(strings.TrimRight(value, "\x00")))
}
