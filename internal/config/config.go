package config

import (
	"time"

	"gridsync/internal/model"
)

// Config is the root configuration for a gatherer instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Database DBConfig       `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Zones    []model.Zone   `yaml:"zones"`
}

// InstanceConfig identifies this gatherer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds ENTSO-E Transparency Platform API settings.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	SecurityToken string        `yaml:"security_token"` // Usually ${ENTSOE_API_KEY}
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`

	// Query type codes. The labels stored per signal are derived from these.
	GenerationDocumentType string `yaml:"generation_document_type"` // A75
	GenerationProcessType  string `yaml:"generation_process_type"`  // A16
	PsrType                string `yaml:"psr_type"`                 // Optional resource filter, e.g. B16
	PriceDocumentType      string `yaml:"price_document_type"`      // A44

	// DropZeroPrices treats a zero price amount as "no data" and discards
	// the point instead of storing 0.0.
	DropZeroPrices bool `yaml:"drop_zero_prices"`
}

// DBConfig holds the PostgreSQL connection.
type DBConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Name        string `yaml:"name"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	SSLMode     string `yaml:"ssl_mode"`
	MaxConns    int    `yaml:"max_conns"`
	MinConns    int    `yaml:"min_conns"`
	PointsTable string `yaml:"points_table"`
	DaysTable   string `yaml:"days_table"`
}

// SyncConfig controls the synchronization sweep.
type SyncConfig struct {
	// Mode selects the record granularity: "points" stores one document per
	// (zone, timestamp) over monthly windows; "days" stores one document per
	// (zone, date) over daily windows.
	Mode string `yaml:"mode"`

	// StartDate is the inclusive start of the historical range, "2006-01-02".
	StartDate string `yaml:"start_date"`

	// Pace is the minimum spacing between fetch windows, respecting upstream
	// rate limits. Zero disables pacing; left unset, days mode defaults to
	// DefaultPace. A pointer keeps an explicit zero distinct from unset.
	Pace *time.Duration `yaml:"pace"`

	// ZoneConcurrency bounds how many zones are processed in parallel.
	// 1 (the default) is the sequential baseline.
	ZoneConcurrency int `yaml:"zone_concurrency"`

	// SummaryLabels names signals reduced to a single once-per-day scalar in
	// days mode (e.g. a day-ahead price index) instead of full point arrays.
	SummaryLabels []string `yaml:"summary_labels"`
}

// MetricsConfig holds the health/metrics HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// StartTime parses the configured start date as a UTC instant.
func (s SyncConfig) StartTime() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s.StartDate, time.UTC)
}

// PaceDuration returns the effective inter-window pace, zero when disabled.
func (s SyncConfig) PaceDuration() time.Duration {
	if s.Pace == nil {
		return 0
	}
	return *s.Pace
}
