package domain

import (
	"testing"
)

// ─── Config Tests ───────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	want := Config{Enabled: false, DelayMinutes: 5, BatteryPercent: 50, SoundEnabled: true}
	if cfg != want {
		t.Errorf("DefaultConfig() = %+v, want %+v", cfg, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		in    Config
		delay int
		pct   int
	}{
		{"in range", Config{DelayMinutes: 10, BatteryPercent: 30}, 10, 30},
		{"too low", Config{DelayMinutes: 0, BatteryPercent: -5}, 1, 1},
		{"too high", Config{DelayMinutes: 600, BatteryPercent: 150}, 60, 100},
		{"bounds", Config{DelayMinutes: 60, BatteryPercent: 1}, 60, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.DelayMinutes != tt.delay || got.BatteryPercent != tt.pct {
				t.Errorf("Normalize() = %+v, want delay %d pct %d", got, tt.delay, tt.pct)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		in   Config
		want error
	}{
		{Config{DelayMinutes: 5, BatteryPercent: 50}, nil},
		{Config{DelayMinutes: 0, BatteryPercent: 50}, ErrInvalidDelay},
		{Config{DelayMinutes: 61, BatteryPercent: 50}, ErrInvalidDelay},
		{Config{DelayMinutes: 5, BatteryPercent: 0}, ErrInvalidThreshold},
		{Config{DelayMinutes: 5, BatteryPercent: 101}, ErrInvalidThreshold},
	}
	for _, tt := range tests {
		if got := tt.in.Validate(); got != tt.want {
			t.Errorf("Validate(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ─── Power Tests ────────────────────────────────────────────────────────────

func TestNewSample_ClampsPercent(t *testing.T) {
	if s := NewSample(false, 140); s.Percent != 100 || !s.Present {
		t.Errorf("NewSample(140) = %+v", s)
	}
	if s := NewSample(true, -3); s.Percent != 0 {
		t.Errorf("NewSample(-3) = %+v", s)
	}
}

func TestPowerSample_Source(t *testing.T) {
	tests := []struct {
		s    PowerSample
		want string
	}{
		{Absent(), "absent"},
		{NewSample(true, 80), "ac"},
		{NewSample(false, 80), "battery"},
	}
	for _, tt := range tests {
		if got := tt.s.Source(); got != tt.want {
			t.Errorf("Source(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestMonitorPhase_String(t *testing.T) {
	tests := map[MonitorPhase]string{
		PhaseIdle:        "idle",
		PhaseArmed:       "armed",
		PhaseFired:       "fired",
		MonitorPhase(99): "unknown",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(p), got, want)
		}
	}
}
