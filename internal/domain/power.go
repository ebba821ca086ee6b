// Package domain holds battguard's core types and capability interfaces.
// A PowerSample is what the platform reports each poll; MonitorState is
// what the monitor derives from the sequence of samples.
package domain

import "time"

// PowerSample is a single reading of the machine's power state.
// Present=false means no battery was found (or it could not be read).
type PowerSample struct {
	Present bool `json:"present"`
	OnAC    bool `json:"on_ac"`
	Percent int  `json:"percent"`
}

// NewSample returns a present sample with percent clamped to 0..100.
func NewSample(onAC bool, percent int) PowerSample {
	return PowerSample{Present: true, OnAC: onAC, Percent: clamp(percent, 0, 100)}
}

// Absent returns the "no battery" sample.
func Absent() PowerSample {
	return PowerSample{}
}

// Source returns a short label for logs and the journal.
func (s PowerSample) Source() string {
	switch {
	case !s.Present:
		return "absent"
	case s.OnAC:
		return "ac"
	default:
		return "battery"
	}
}

// ─── Monitor State ──────────────────────────────────────────────────────────

// MonitorPhase is the monitor's state machine position.
type MonitorPhase int

const (
	PhaseIdle  MonitorPhase = iota // On AC, disabled, or not yet unplugged
	PhaseArmed                     // On battery, delay countdown running
	PhaseFired                     // ShutdownRequested raised, awaiting outcome
)

// String returns the lowercase phase name.
func (p MonitorPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmed:
		return "armed"
	case PhaseFired:
		return "fired"
	default:
		return "unknown"
	}
}

// MonitorState is the monitor's current phase. Deadline is only
// meaningful while Armed or Fired.
type MonitorState struct {
	Phase    MonitorPhase
	Deadline time.Time
}

// ShutdownRequested is raised once per Armed→Fired transition.
type ShutdownRequested struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Deadline time.Time `json:"deadline"`
	Percent  int       `json:"percent"`
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
