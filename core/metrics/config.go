package metrics

import "github.com/kilianp07/erdispatch/core/factory"

// Config lists the sinks to build. PromAddr, when set, serves /metrics.
type Config struct {
	Sinks    []factory.ModuleConfig `json:"sinks"`
	PromAddr string                 `json:"prom_addr"`
}
