package testsupport

import (
	"path/filepath"
	"testing"

	"geocluster/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a default config whose log directory lives in a unique
// temp directory per test, then applies opts.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithThreshold sets the clustering radius in meters.
func WithThreshold(meters float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Clustering.ThresholdMeters = meters
	}
}

// WithProximityMerge enables the proximity merger with the given radius.
func WithProximityMerge(meters float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Clustering.Merge = "proximity"
		b.cfg.Clustering.MergeThresholdMeters = meters
	}
}

// WithRelocation enables time-based relocation.
func WithRelocation(windowSeconds int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Relocation.Enabled = true
		b.cfg.Relocation.WindowSeconds = windowSeconds
	}
}

// WithGeocoding enables reverse geocoding with key.
func WithGeocoding(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Geocoding.Enabled = true
		b.cfg.Geocoding.APIKey = key
	}
}
