package logging

import (
	"log/slog"
	"strconv"
	"time"

	"geocluster/internal/geo"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Item tags a line with the path of the photo it concerns.
func Item(path string) Attr { return slog.String(FieldItem, path) }

// Coordinate renders c as "lat,lon" in the same precision used for folder
// names.
func Coordinate(key string, c geo.Coordinate) Attr {
	return slog.String(key, c.String())
}

// Meters rounds a distance to the centimetre.
func Meters(key string, m float64) Attr {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(m, 'f', 2, 64), 64)
	return slog.Float64(key, v)
}

func Alert(value string) Attr { return slog.String(FieldAlert, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String(FieldError, "<nil>")
	}
	return slog.String(FieldError, err.Error())
}

// Args converts attrs into the variadic form slog's logging methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
