package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL      = "https://web-api.tp.entsoe.eu/api"
	DefaultAPITimeout   = 30 * time.Second
	DefaultMaxRetries   = 5
	DefaultRetryBackoff = 1 * time.Second

	DefaultGenerationDocumentType = "A75"
	DefaultGenerationProcessType  = "A16"
	DefaultPriceDocumentType      = "A44"

	DefaultDBPort      = 5432
	DefaultDBSSLMode   = "prefer"
	DefaultMaxConns    = 10
	DefaultMinConns    = 2
	DefaultPointsTable = "zone_observations"
	DefaultDaysTable   = "zone_days"

	DefaultSyncMode        = "points"
	DefaultPace            = 1500 * time.Millisecond
	DefaultZoneConcurrency = 1

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

// applyDefaults fills in zero-valued optional fields.
func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}
	if c.API.GenerationDocumentType == "" {
		c.API.GenerationDocumentType = DefaultGenerationDocumentType
	}
	if c.API.GenerationProcessType == "" {
		c.API.GenerationProcessType = DefaultGenerationProcessType
	}
	if c.API.PriceDocumentType == "" {
		c.API.PriceDocumentType = DefaultPriceDocumentType
	}

	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}
	if c.Database.PointsTable == "" {
		c.Database.PointsTable = DefaultPointsTable
	}
	if c.Database.DaysTable == "" {
		c.Database.DaysTable = DefaultDaysTable
	}

	if c.Sync.Mode == "" {
		c.Sync.Mode = DefaultSyncMode
	}
	// Only an unset pace gets the days-mode default; an explicit 0s keeps
	// pacing disabled.
	if c.Sync.Pace == nil {
		pace := time.Duration(0)
		if c.Sync.Mode == "days" {
			pace = DefaultPace
		}
		c.Sync.Pace = &pace
	}
	if c.Sync.ZoneConcurrency == 0 {
		c.Sync.ZoneConcurrency = DefaultZoneConcurrency
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
