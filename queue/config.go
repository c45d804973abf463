package queue

import (
	"fmt"
	"time"
)

var DefaultConfig = Config{
	PollInterval: 1 * time.Second,
}

type Config struct {
	PollInterval time.Duration // Sleep interval of the executor and promoter loops
}

func (c *Config) String() string {
	return fmt.Sprintf("PollInterval: %v", c.PollInterval)
}

// sanitized returns a config with unusable field values replaced by defaults.
func (c Config) sanitized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultConfig.PollInterval
	}
	return c
}
