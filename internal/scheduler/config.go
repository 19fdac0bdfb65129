package scheduler

import "time"

// Config controls the decay job interval and per-run bounds.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	DecayPoints int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  2 * time.Minute,
		DecayPoints: 1,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.DecayPoints <= 0 {
		c.DecayPoints = defaults.DecayPoints
	}
	return c
}
