package config

import (
	"fmt"
	"strings"
	"time"
)

// CatalogConfig points at the remote product/user API the storefront fronts.
type CatalogConfig struct {
	BaseURL string        `koanf:"baseUrl"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *CatalogConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("catalog base URL is not configured")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("catalog base URL must be http(s): %s", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("catalog request timeout is not configured")
	}
	return nil
}
