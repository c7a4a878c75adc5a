package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeClustering()
	c.normalizeRelocation()
	c.normalizeGeocoding()
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeClustering() {
	c.Clustering.Merge = strings.ToLower(strings.TrimSpace(c.Clustering.Merge))
	if c.Clustering.Merge == "" {
		c.Clustering.Merge = defaultMerge
	}
}

func (c *Config) normalizeRelocation() {
	if c.Relocation.WindowSeconds == 0 {
		c.Relocation.WindowSeconds = defaultWindowSeconds
	}
}

func (c *Config) normalizeGeocoding() {
	c.Geocoding.APIKey = strings.TrimSpace(c.Geocoding.APIKey)
	if c.Geocoding.APIKey == "" {
		c.Geocoding.APIKey = lookupAPIKey()
	}
	c.Geocoding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Geocoding.BaseURL), "/")
	if c.Geocoding.BaseURL == "" {
		c.Geocoding.BaseURL = defaultGeocodingBaseURL
	}
	c.Geocoding.Language = strings.TrimSpace(c.Geocoding.Language)
	if c.Geocoding.Language == "" {
		c.Geocoding.Language = defaultGeocodingLanguage
	}
	if c.Geocoding.TimeoutSeconds <= 0 {
		c.Geocoding.TimeoutSeconds = defaultGeocodingTimeout
	}
	if c.Geocoding.RetryAttempts <= 0 {
		c.Geocoding.RetryAttempts = defaultGeocodingRetries
	}
	if c.Geocoding.Concurrency <= 0 {
		c.Geocoding.Concurrency = defaultGeocodingWorkers
	}
}

// lookupAPIKey prefers the process environment and falls back to a .env file
// in the working directory.
func lookupAPIKey() string {
	if value, ok := os.LookupEnv(apiKeyEnv); ok {
		return strings.TrimSpace(value)
	}
	values, err := godotenv.Read(dotEnvFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values[apiKeyEnv])
}

func (c *Config) normalizeIngest() {
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = defaultIngestWorkers
	}
	if len(c.Ingest.Extensions) == 0 {
		c.Ingest.Extensions = append([]string(nil), defaultExtensions...)
		return
	}
	exts := make([]string, 0, len(c.Ingest.Extensions))
	seen := make(map[string]struct{}, len(c.Ingest.Extensions))
	for _, ext := range c.Ingest.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Ingest.Extensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentLevels) > 0 {
		levels := make(map[string]string, len(c.Logging.ComponentLevels))
		for component, level := range c.Logging.ComponentLevels {
			component = strings.ToLower(strings.TrimSpace(component))
			level = strings.ToLower(strings.TrimSpace(level))
			if component == "" || level == "" {
				continue
			}
			levels[component] = level
		}
		c.Logging.ComponentLevels = levels
	}
}
