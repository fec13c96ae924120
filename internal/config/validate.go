package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
// A config that fails validation is fatal at startup; no partial run is
// attempted against a misconfigured store or API.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.SecurityToken == "" {
		return errors.New("api.security_token is required (set ENTSOE_API_KEY)")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.RetryBackoff < 0 {
		return errors.New("api.retry_backoff must be >= 0")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	switch c.Sync.Mode {
	case "points", "days":
	default:
		return fmt.Errorf("sync.mode must be \"points\" or \"days\", got %q", c.Sync.Mode)
	}
	if c.Sync.StartDate == "" {
		return errors.New("sync.start_date is required")
	}
	if _, err := c.Sync.StartTime(); err != nil {
		return fmt.Errorf("sync.start_date must be YYYY-MM-DD: %w", err)
	}
	if c.Sync.ZoneConcurrency < 1 {
		return errors.New("sync.zone_concurrency must be >= 1")
	}
	if c.Sync.Pace != nil && *c.Sync.Pace < 0 {
		return errors.New("sync.pace must be >= 0")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if len(c.Zones) == 0 {
		return errors.New("at least one zone is required")
	}
	seen := make(map[string]bool, len(c.Zones))
	for i, z := range c.Zones {
		if z.Code == "" {
			return fmt.Errorf("zones[%d].code is required", i)
		}
		if z.EIC == "" {
			return fmt.Errorf("zones[%d].eic is required (zone %s)", i, z.Code)
		}
		if seen[z.Code] {
			return fmt.Errorf("duplicate zone code %q", z.Code)
		}
		seen[z.Code] = true
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
