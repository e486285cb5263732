package reconcile

import "time"

// Config controls the reconcile loop cadence.
type Config struct {
	RunInterval    time.Duration
	RunTimeout     time.Duration
	StuckThreshold time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    5 * time.Minute,
		RunTimeout:     time.Minute,
		StuckThreshold: 15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = defaults.StuckThreshold
	}
	return c
}
