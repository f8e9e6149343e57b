package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig configures the optional PostgreSQL backing for the durable
// key-value store. An empty URL means the service runs on in-memory storage.
type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Enabled reports whether a database is configured at all.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return nil
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://': %s", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout is not configured")
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}
