package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/infra/monitoring"
	"github.com/kilianp07/erdispatch/infra/mqtt"
)

// EnvPrefix marks environment variables that override file settings.
// ERD_DISPATCH__LOG__BACKEND sets dispatch.log.backend.
const EnvPrefix = "ERD_"

type Config struct {
	Data      DataConfig              `json:"data"`
	Routing   RoutingConfig           `json:"routing"`
	Dispatch  dispatch.Config         `json:"dispatch"`
	Metrics   metrics.Config          `json:"metrics"`
	MQTT      mqtt.Config             `json:"mqtt"`
	Generator GeneratorConfig         `json:"generator"`
	API       APIConfig               `json:"api"`
	Sentry    monitoring.SentryConfig `json:"sentry"`
	// Notifier names the crew notifier: nop, mock or mqtt. Empty picks mqtt
	// when a broker is set.
	Notifier string `json:"notifier"`
}

// Load reads the yaml or json file at path, applies environment overrides,
// fills defaults and validates the result. An empty path loads only the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Data.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Generator.SetDefaults()
	c.API.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section and names the first one that fails.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"data", c.Data.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"generator", c.Generator.Validate},
		{"api", c.API.Validate},
		{"mqtt", c.MQTT.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("config %s: %w", ch.name, err)
		}
	}
	return nil
}
