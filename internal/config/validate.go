package config

import (
	"fmt"
	"math"
	"strings"

	"geocluster/internal/services"
)

// Validate ensures the configuration is usable. Failures carry the
// services.ErrConfiguration marker.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateClustering,
		c.validateRelocation,
		c.validateGeocoding,
		c.validateIngest,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validateClustering() error {
	t := c.Clustering.ThresholdMeters
	if !(t > 0) || math.IsInf(t, 0) {
		return fmt.Errorf("clustering.threshold_meters must be a positive finite number, got %v", t)
	}
	if m := c.Clustering.MergeThresholdMeters; m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("clustering.merge_threshold_meters must be a non-negative finite number, got %v", m)
	}
	switch c.Clustering.Merge {
	case "none", "proximity":
	default:
		return fmt.Errorf("clustering.merge must be one of none, proximity (got %q)", c.Clustering.Merge)
	}
	return nil
}

func (c *Config) validateRelocation() error {
	if c.Relocation.WindowSeconds < 0 {
		return fmt.Errorf("relocation.window_seconds must be non-negative, got %d", c.Relocation.WindowSeconds)
	}
	if c.Relocation.WindowSeconds > MaxWindowSeconds {
		return fmt.Errorf("relocation.window_seconds must be at most %d, got %d", MaxWindowSeconds, c.Relocation.WindowSeconds)
	}
	return nil
}

func (c *Config) validateGeocoding() error {
	if !c.Geocoding.Enabled {
		return nil
	}
	if c.Geocoding.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("geocoding.api_key is required when geocoding is enabled. Set %s, pass --api-key, or edit %s", apiKeyEnv, defaultPath)
	}
	if !strings.HasPrefix(c.Geocoding.BaseURL, "http://") && !strings.HasPrefix(c.Geocoding.BaseURL, "https://") {
		return fmt.Errorf("geocoding.base_url must be an http(s) URL, got %q", c.Geocoding.BaseURL)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.Workers > 256 {
		return fmt.Errorf("ingest.workers must be at most 256, got %d", c.Ingest.Workers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	for component, level := range c.Logging.ComponentLevels {
		if !validLevel(level) {
			return fmt.Errorf("logging.component_levels.%s: unsupported level %q", component, level)
		}
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
