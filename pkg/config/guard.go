package config

import (
	"fmt"
	"strings"
)

// GuardConfig lists the path prefixes that require an authenticated session
// and where unauthenticated requests are sent.
type GuardConfig struct {
	ProtectedPrefixes []string `koanf:"protectedPrefixes"`
	LoginPath         string   `koanf:"loginPath"`
}

func (c *GuardConfig) Validate() error {
	if c.LoginPath == "" {
		return fmt.Errorf("guard login path is not configured")
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("guard login path must be absolute: %s", c.LoginPath)
	}
	for _, p := range c.ProtectedPrefixes {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("protected prefix must be absolute: %s", p)
		}
	}
	return nil
}
