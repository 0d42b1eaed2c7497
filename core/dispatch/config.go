package dispatch

import "github.com/kilianp07/erdispatch/core/dispatch/logging"

// Config defines dispatch settings.
type Config struct {
	Log logging.Config `json:"log"`
	// RelocateOnDispatch moves a vehicle to the incident node as soon as it
	// is dispatched. Unset means true.
	RelocateOnDispatch *bool `json:"relocate_on_dispatch"`
}

func (c *Config) SetDefaults() {
	c.Log.SetDefaults()
	if c.RelocateOnDispatch == nil {
		t := true
		c.RelocateOnDispatch = &t
	}
}

func (c Config) Validate() error { return c.Log.Validate() }

// Relocate reports the effective relocation setting.
func (c Config) Relocate() bool { return c.RelocateOnDispatch == nil || *c.RelocateOnDispatch }
