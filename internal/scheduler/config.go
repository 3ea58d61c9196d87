package scheduler

import (
	"time"
)

// Config controls the sync loop. A zero RunInterval defers to the interval
// from carriers.yml so operators tune one place.
type Config struct {
	RunInterval      time.Duration
	SyncTimeout      time.Duration
	DiscoverServices bool
}

func DefaultConfig() Config {
	return Config{
		SyncTimeout:      2 * time.Minute,
		DiscoverServices: true,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = defaults.SyncTimeout
	}
	return c
}

func ProvideConfig() Config {
	return DefaultConfig()
}
