package plugins

import (
	"github.com/kilianp07/erdispatch/config"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
	"github.com/kilianp07/erdispatch/infra/mqtt"
)

const (
	NotifierNop  = "nop"
	NotifierMock = "mock"
	NotifierMQTT = "mqtt"
)

func init() {
	RegisterNotifier(NotifierNop, func(config.Config) (coremqtt.Notifier, error) {
		return coremqtt.NopNotifier{}, nil
	})
	RegisterNotifier(NotifierMock, func(config.Config) (coremqtt.Notifier, error) {
		return mqtt.NewMockNotifier(), nil
	})
	RegisterNotifier(NotifierMQTT, func(cfg config.Config) (coremqtt.Notifier, error) {
		return mqtt.NewPahoClient(cfg.MQTT)
	})
}

// DefaultNotifier picks mqtt when a broker is configured and nop otherwise.
func DefaultNotifier(cfg config.Config) string {
	if cfg.Notifier != "" {
		return cfg.Notifier
	}
	if cfg.MQTT.Enabled() {
		return NotifierMQTT
	}
	return NotifierNop
}
