package config

import (
	"fmt"
	"time"
)

// DefaultIncidentTypes are used when no types are configured.
var DefaultIncidentTypes = []string{"Accident", "Medical", "Fire", "Gas Leak", "Flood", "Rescue"}

// GeneratorConfig configures the random incident generator.
type GeneratorConfig struct {
	// Enabled starts a background generator when serving.
	Enabled bool `json:"enabled"`
	// Seed fixes the random sequence. Zero seeds from the clock.
	Seed               int64    `json:"seed"`
	Count              int      `json:"count"`
	Types              []string `json:"types"`
	MinIntervalSeconds int      `json:"min_interval_seconds"`
	MaxIntervalSeconds int      `json:"max_interval_seconds"`
}

// SetDefaults applies fallback values for optional fields.
func (c *GeneratorConfig) SetDefaults() {
	if c.Count <= 0 {
		c.Count = 10
	}
	if len(c.Types) == 0 {
		c.Types = append([]string(nil), DefaultIncidentTypes...)
	}
	if c.MinIntervalSeconds <= 0 {
		c.MinIntervalSeconds = 5
	}
	if c.MaxIntervalSeconds <= 0 {
		c.MaxIntervalSeconds = 30
	}
}

// Validate checks the configuration ranges.
func (c GeneratorConfig) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("count must be positive")
	}
	if c.MinIntervalSeconds < 0 || c.MaxIntervalSeconds < 0 {
		return fmt.Errorf("interval seconds must be positive")
	}
	if c.MinIntervalSeconds > c.MaxIntervalSeconds {
		return fmt.Errorf("min_interval_seconds > max_interval_seconds")
	}
	for _, t := range c.Types {
		if t == "" {
			return fmt.Errorf("empty incident type")
		}
	}
	return nil
}

func (c GeneratorConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalSeconds) * time.Second
}

func (c GeneratorConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalSeconds) * time.Second
}
