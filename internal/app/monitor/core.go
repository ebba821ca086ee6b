// Package monitor implements the power-transition state machine and the
// polling loop that drives it.
package monitor

import (
	"time"

	"github.com/google/uuid"
	"github.com/tutu-network/battguard/internal/domain"
)

// Core is the Idle → Armed → Fired state machine. It is not safe for
// concurrent use; the Monitor loop is its only caller.
type Core struct {
	state    domain.MonitorState
	prevOnAC bool
	newID    func() string
}

// NewCore returns a Core in Idle that treats the first sample it sees as
// coming after AC power, so starting unplugged arms the countdown.
func NewCore() *Core {
	return &Core{prevOnAC: true, newID: uuid.NewString}
}

// State returns the current state.
func (c *Core) State() domain.MonitorState {
	return c.state
}

// Poll advances the state machine by one sample. It returns an event only
// on the poll that moves Armed → Fired.
func (c *Core) Poll(sample domain.PowerSample, now time.Time, cfg domain.Config) (domain.ShutdownRequested, bool) {
	if !cfg.Enabled {
		// Disabling drops any countdown; re-enabling starts fresh.
		c.state = domain.MonitorState{}
		c.prevOnAC = true
		return domain.ShutdownRequested{}, false
	}
	if !sample.Present {
		return domain.ShutdownRequested{}, false
	}

	switch {
	case sample.OnAC:
		c.state = domain.MonitorState{}
	case c.prevOnAC && c.state.Phase == domain.PhaseIdle:
		c.state = domain.MonitorState{
			Phase:    domain.PhaseArmed,
			Deadline: now.Add(time.Duration(cfg.DelayMinutes) * time.Minute),
		}
	}
	c.prevOnAC = sample.OnAC

	if c.state.Phase != domain.PhaseArmed || sample.OnAC {
		return domain.ShutdownRequested{}, false
	}
	if now.Before(c.state.Deadline) || sample.Percent > cfg.BatteryPercent {
		return domain.ShutdownRequested{}, false
	}

	c.state.Phase = domain.PhaseFired
	return domain.ShutdownRequested{
		ID:       c.newID(),
		At:       now,
		Deadline: c.state.Deadline,
		Percent:  sample.Percent,
	}, true
}
