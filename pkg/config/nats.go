package config

import (
	"fmt"
	"time"
)

// NATSConfig configures the optional JetStream connection used for checkout
// events. An empty URL disables publishing (a no-op publisher is wired in).
type NATSConfig struct {
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Enabled reports whether a NATS connection is configured.
func (c *NATSConfig) Enabled() bool {
	return c.Url != ""
}

func (c *NATSConfig) Validate() error {
	if c.Url == "" {
		return nil
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	return nil
}
