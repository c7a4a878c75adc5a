package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDMSDecimal(t *testing.T) {
	got := DMS{Degrees: 45, Minutes: 30, Seconds: 36}.Decimal()
	if math.Abs(got-45.51) > 1e-12 {
		t.Fatalf("Decimal() = %v, want 45.51", got)
	}
}

func TestFromDMSHemispheres(t *testing.T) {
	c := FromDMS(DMS{Degrees: 33, Minutes: 52, Seconds: 4}, true, DMS{Degrees: 151, Minutes: 12, Seconds: 36}, false)
	if c.Lat >= 0 {
		t.Fatalf("expected southern latitude, got %v", c.Lat)
	}
	if c.Lon <= 0 {
		t.Fatalf("expected eastern longitude, got %v", c.Lon)
	}
}

func TestUsable(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"regular", New(10, 10), true},
		{"equator", New(0, 12.5), true},
		{"meridian", New(51.5, 0), true},
		{"origin", New(0, 0), false},
		{"nan lat", New(math.NaN(), 10), false},
		{"nan lon", New(10, math.NaN()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Usable(); got != tt.want {
				t.Fatalf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceKnownPair(t *testing.T) {
	d, err := Distance(New(10, 10), New(10.0001, 10.0001))
	if err != nil {
		t.Fatalf("Distance returned error: %v", err)
	}
	if d < 10 || d > 20 {
		t.Fatalf("expected roughly 15m, got %v", d)
	}
	far, err := Distance(New(10, 10), New(50, 50))
	if err != nil {
		t.Fatalf("Distance returned error: %v", err)
	}
	if far < 1_000_000 {
		t.Fatalf("expected thousands of km, got %v", far)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a, b := New(48.8566, 2.3522), New(51.5074, -0.1278)
	ab, err := Distance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ab-ba) > 1e-6 {
		t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistanceRejectsDegenerateInput(t *testing.T) {
	cases := []Coordinate{
		New(95, 10),
		New(10, 190),
		New(math.NaN(), 10),
		New(math.Inf(1), 10),
	}
	for _, c := range cases {
		if _, err := Distance(New(10, 10), c); !errors.Is(err, ErrDistance) {
			t.Fatalf("Distance(%v) error = %v, want ErrDistance", c, err)
		}
	}
}

func TestWithinBoundaryInclusive(t *testing.T) {
	a, b := New(10, 10), New(10.0001, 10.0001)
	d, err := Distance(a, b)
	if err != nil {
		t.Fatal(err)
	}

	inside, err := Within(a, b, d)
	if err != nil {
		t.Fatal(err)
	}
	if !inside {
		t.Fatal("point at exactly threshold distance should be inside")
	}

	outside, err := Within(a, b, math.Nextafter(d, 0))
	if err != nil {
		t.Fatal(err)
	}
	if outside {
		t.Fatal("point marginally beyond threshold should be outside")
	}
}

func TestStringUsesShortestForm(t *testing.T) {
	if got := New(10.0001, -3.5).String(); got != "10.0001,-3.5" {
		t.Fatalf("String() = %q", got)
	}
}
