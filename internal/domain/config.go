package domain

// Config is the user-facing guard configuration. It is copied by value;
// SharedConfig hands out snapshots, never pointers.
type Config struct {
	Enabled        bool `json:"enabled" toml:"enabled"`
	DelayMinutes   int  `json:"delay_minutes" toml:"delay_minutes"`
	BatteryPercent int  `json:"battery_percent" toml:"battery_percent"`
	SoundEnabled   bool `json:"sound_enabled" toml:"sound_enabled"`
}

// Valid ranges for Config fields.
const (
	MinDelayMinutes   = 1
	MaxDelayMinutes   = 60
	MinBatteryPercent = 1
	MaxBatteryPercent = 100
)

// DefaultConfig returns the documented defaults. Auto-shutdown starts
// disabled until the user opts in.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		DelayMinutes:   5,
		BatteryPercent: 50,
		SoundEnabled:   true,
	}
}

// Normalize clamps numeric fields into their valid ranges.
func (c Config) Normalize() Config {
	c.DelayMinutes = clamp(c.DelayMinutes, MinDelayMinutes, MaxDelayMinutes)
	c.BatteryPercent = clamp(c.BatteryPercent, MinBatteryPercent, MaxBatteryPercent)
	return c
}

// Validate reports the first out-of-range field, for callers that want
// to reject input instead of clamping it.
func (c Config) Validate() error {
	if c.DelayMinutes < MinDelayMinutes || c.DelayMinutes > MaxDelayMinutes {
		return ErrInvalidDelay
	}
	if c.BatteryPercent < MinBatteryPercent || c.BatteryPercent > MaxBatteryPercent {
		return ErrInvalidThreshold
	}
	return nil
}
