package config

import "errors"

// DataConfig locates the text files loaded at startup.
type DataConfig struct {
	Graph     string `json:"graph"`
	Fleet     string `json:"fleet"`
	Incidents string `json:"incidents"`
}

func (c *DataConfig) SetDefaults() {
	if c.Graph == "" {
		c.Graph = "map.txt"
	}
	if c.Fleet == "" {
		c.Fleet = "fleet.txt"
	}
	if c.Incidents == "" {
		c.Incidents = "incidents.txt"
	}
}

func (c DataConfig) Validate() error {
	if c.Graph == "" {
		return errors.New("graph path is required")
	}
	return nil
}

// RoutingConfig tunes road network and nearest-vehicle behavior.
type RoutingConfig struct {
	// RespectBlockedForNearest makes vehicle selection avoid blocked roads.
	RespectBlockedForNearest bool `json:"respect_blocked_for_nearest"`
	RejectParallelEdges      bool `json:"reject_parallel_edges"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on every request.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func (c APIConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}
