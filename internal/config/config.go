// Package config defines the process configuration for the surfcast services.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"surfcast/internal/types"
)

// SecretString is an alias for types.SecretString so secrets never reach logs.
type SecretString = types.SecretString

// Config is the top-level configuration. Components receive only the
// sub-struct they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"surfcast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Forecast      ForecastConfig
	Upstream      UpstreamConfig
	Observability ObservabilityConfig
	Feature       FeatureConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// IsLocal reports whether the process runs outside AWS.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig selects the forecast store. DATABASE_URL picks PostgreSQL;
// without it the SQLite file at SQLITE_PATH is used.
type DatabaseConfig struct {
	URL        SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`
	SQLitePath string       `envconfig:"SQLITE_PATH" default:"surfcast.db"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
}

// AWSConfig holds AWS resource identifiers.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// ForecastBucket receives the published forecast documents.
	ForecastBucket string `envconfig:"FORECAST_BUCKET"`
	// CacheBucket backs the forecast memoizer; empty disables the S3 cache.
	CacheBucket  string `envconfig:"CACHE_BUCKET"`
	RefreshQueue string `envconfig:"SQS_REFRESH" validate:"omitempty,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ForecastConfig tunes the forecast pipeline.
type ForecastConfig struct {
	HoursToForecast  int           `envconfig:"FORECAST_HOURS" default:"120" validate:"gte=1,lte=384"`
	Resolution       float64       `envconfig:"FORECAST_RESOLUTION" default:"0.167" validate:"gt=0,lte=5"`
	TideStepHours    float64       `envconfig:"TIDE_STEP_HOURS" default:"3" validate:"gt=0"`
	CacheMaxAge      time.Duration `envconfig:"FORECAST_CACHE_MAX_AGE" default:"30m"`
	FetchConcurrency int           `envconfig:"FETCH_CONCURRENCY" default:"10" validate:"gte=1,lte=64"`
	LocationCatalog  string        `envconfig:"LOCATION_CATALOG" default:"locations.yaml" validate:"required"`
}

// UpstreamConfig points at the NOAA data sources.
type UpstreamConfig struct {
	Mirrors     []string      `envconfig:"UPSTREAM_MIRRORS" default:"noaa-gfs-bdp-pds,aws-noaa-gfs" validate:"min=1"`
	NomadsURL   string        `envconfig:"NOMADS_URL" default:"https://nomads.ncep.noaa.gov/cgi-bin/filter_gfswave.pl" validate:"url"`
	WeatherURL  string        `envconfig:"NWS_URL" default:"https://api.weather.gov" validate:"url"`
	TidesURL    string        `envconfig:"COOPS_URL" default:"https://api.tidesandcurrents.noaa.gov/api/prod/datagetter" validate:"url"`
	UserAgent   string        `envconfig:"UPSTREAM_USER_AGENT" default:"surfcast/1.0 (ops@surfcast.dev)"`
	HTTPTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Surfcast"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// FeatureConfig toggles optional forecast behavior.
type FeatureConfig struct {
	// StrictIncidentAngle discards a whole run when any hour has all swell
	// arriving from behind the beach.
	StrictIncidentAngle  bool `envconfig:"FEATURE_STRICT_INCIDENT_ANGLE" default:"true"`
	EnableJettyShadowing bool `envconfig:"FEATURE_ENABLE_JETTY_SHADOWING" default:"false"`
	EnableWindAdjustment bool `envconfig:"FEATURE_ENABLE_WIND_ADJUSTMENT" default:"false"`
	// DevSingleLocation limits refresh runs to the first catalog entry.
	DevSingleLocation bool `envconfig:"FEATURE_DEV_SINGLE_LOCATION" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
