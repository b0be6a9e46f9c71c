package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation constants define acceptable bounds for configuration values
const (
	// Token validation
	minTokenLength = 50 // Discord tokens are typically 50+ characters

	// SweepInterval validation
	minSweepInterval = 10 * time.Second // Minimum to avoid hammering the Discord API
	maxSweepInterval = 1 * time.Hour    // Expired sanctions should not linger longer than this

	// RebuildScanCap validation (0 means unlimited)
	maxRebuildScanCap = 10_000_000
)

// Validate checks if the configuration values are valid and within acceptable ranges.
// It returns all validation errors at once using errors.Join for better user experience.
//
// All configuration fields are validated:
//   - Token: Must be at least 50 characters (Discord token format)
//   - DatabaseURL: Must be a postgres connection string
//   - SweepInterval: Must be between 10s and 1h
//   - RebuildScanCap: Must be 0 (unlimited) or a positive number up to 10M
//   - MetricsAddr: Optional, must be a host:port when set
//
// Returns nil if all validations pass, otherwise returns a combined error
// containing all validation failures.
func (c *Config) Validate() error {
	var errs []error

	if err := c.validateToken(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateDatabaseURL(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateSweepInterval(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateRebuildScanCap(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateMetricsAddr(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %w", errors.Join(errs...))
	}

	return nil
}

// validateToken ensures the Discord token is present and has valid length
func (c *Config) validateToken() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required but not set")
	}

	if len(c.Token) < minTokenLength {
		return fmt.Errorf(
			"DISCORD_TOKEN appears invalid (too short: %d chars, expected %d+)",
			len(c.Token), minTokenLength,
		)
	}

	return nil
}

// validateDatabaseURL ensures the connection string targets postgres
func (c *Config) validateDatabaseURL() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}

	if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf(
			"DATABASE_URL must be a postgres:// or postgresql:// connection string, got %q prefix",
			strings.SplitN(c.DatabaseURL, ":", 2)[0],
		)
	}

	return nil
}

// validateSweepInterval ensures the sanction sweep interval is within acceptable bounds
func (c *Config) validateSweepInterval() error {
	if c.SweepInterval < minSweepInterval {
		return fmt.Errorf(
			"SWEEP_INTERVAL must be at least %v to avoid excessive API calls, got %v (hint: the default of 1m is fine for most deployments)",
			minSweepInterval, c.SweepInterval,
		)
	}

	if c.SweepInterval > maxSweepInterval {
		return fmt.Errorf(
			"SWEEP_INTERVAL must be at most %v, got %v",
			maxSweepInterval, c.SweepInterval,
		)
	}

	return nil
}

// validateRebuildScanCap ensures the history-scan cap is sane
func (c *Config) validateRebuildScanCap() error {
	if c.RebuildScanCap < 0 {
		return fmt.Errorf("REBUILD_SCAN_CAP must be 0 (unlimited) or positive, got %d", c.RebuildScanCap)
	}

	if c.RebuildScanCap > maxRebuildScanCap {
		return fmt.Errorf(
			"REBUILD_SCAN_CAP must be at most %d, got %d",
			maxRebuildScanCap, c.RebuildScanCap,
		)
	}

	return nil
}

// validateMetricsAddr ensures the metrics listen address looks like host:port when set
func (c *Config) validateMetricsAddr() error {
	if c.MetricsAddr == "" {
		return nil
	}

	if !strings.Contains(c.MetricsAddr, ":") {
		return fmt.Errorf("METRICS_ADDR must be a host:port listen address, got %q", c.MetricsAddr)
	}

	return nil
}
