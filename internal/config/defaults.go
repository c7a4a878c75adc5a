package config

const (
	defaultConfigPath        = "~/.config/geocluster/config.toml"
	defaultLogDir            = "~/.local/share/geocluster/logs"
	defaultThresholdMeters   = 1000
	defaultMerge             = "none"
	defaultWindowSeconds     = 3600
	defaultGeocodingBaseURL  = "https://us1.locationiq.com/v1"
	defaultGeocodingLanguage = "en"
	defaultGeocodingTimeout  = 10
	defaultGeocodingRetries  = 3
	defaultGeocodingWorkers  = 2
	defaultIngestWorkers     = 8
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	apiKeyEnv                = "GEOCLUSTER_API_KEY"
	dotEnvFile               = ".env"
)

var defaultExtensions = []string{
	".jpg", ".jpeg", ".tif", ".tiff", ".heic", ".heif", ".png",
	".dng", ".nef", ".cr2", ".arw", ".raf", ".orf", ".rw2",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Clustering: Clustering{
			ThresholdMeters: defaultThresholdMeters,
			Merge:           defaultMerge,
		},
		Relocation: Relocation{
			WindowSeconds: defaultWindowSeconds,
		},
		Geocoding: Geocoding{
			BaseURL:        defaultGeocodingBaseURL,
			Language:       defaultGeocodingLanguage,
			TimeoutSeconds: defaultGeocodingTimeout,
			RetryAttempts:  defaultGeocodingRetries,
			Concurrency:    defaultGeocodingWorkers,
		},
		Ingest: Ingest{
			Workers:    defaultIngestWorkers,
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
