package monitor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/tutu-network/battguard/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func enabledConfig(delay, pct int) domain.Config {
	return domain.Config{Enabled: true, DelayMinutes: delay, BatteryPercent: pct, SoundEnabled: true}
}

func at(secs int) time.Time {
	return t0.Add(time.Duration(secs) * time.Second)
}

func newTestCore() *Core {
	c := NewCore()
	c.newID = func() string { return "evt-1" }
	return c
}

// ─── Arming ─────────────────────────────────────────────────────────────────

func TestPoll_UnplugArms(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(5, 50)

	c.Poll(domain.NewSample(true, 100), at(0), cfg)
	if c.State().Phase != domain.PhaseIdle {
		t.Fatalf("on AC phase = %v, want idle", c.State().Phase)
	}

	c.Poll(domain.NewSample(false, 80), at(0), cfg)
	st := c.State()
	if st.Phase != domain.PhaseArmed {
		t.Fatalf("after unplug phase = %v, want armed", st.Phase)
	}
	if want := at(300); !st.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", st.Deadline, want)
	}
}

func TestPoll_StartingOnBatteryArms(t *testing.T) {
	c := newTestCore()
	c.Poll(domain.NewSample(false, 90), at(0), enabledConfig(1, 50))
	if c.State().Phase != domain.PhaseArmed {
		t.Errorf("phase = %v, want armed on first battery sample", c.State().Phase)
	}
}

func TestPoll_BatteryAgainDoesNotResetDeadline(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(5, 50)

	c.Poll(domain.NewSample(false, 80), at(0), cfg)
	deadline := c.State().Deadline

	for _, s := range []int{2, 4, 6, 100, 200} {
		c.Poll(domain.NewSample(false, 80), at(s), cfg)
	}
	if !c.State().Deadline.Equal(deadline) {
		t.Errorf("Deadline moved from %v to %v", deadline, c.State().Deadline)
	}
}

// ─── Firing ─────────────────────────────────────────────────────────────────

func TestPoll_ReferenceScenario(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(5, 50)

	c.Poll(domain.NewSample(true, 80), at(0), cfg)
	c.Poll(domain.NewSample(false, 80), at(0), cfg)

	for s := 2; s < 300; s += 2 {
		if _, fired := c.Poll(domain.NewSample(false, 80), at(s), cfg); fired {
			t.Fatalf("fired at t=%ds before deadline", s)
		}
		if c.State().Phase != domain.PhaseArmed {
			t.Fatalf("t=%ds phase = %v, want armed", s, c.State().Phase)
		}
	}

	if _, fired := c.Poll(domain.NewSample(false, 80), at(300), cfg); fired {
		t.Fatal("fired at deadline with percent above threshold")
	}
	if c.State().Phase != domain.PhaseArmed {
		t.Fatalf("t=300s phase = %v, want armed", c.State().Phase)
	}

	ev, fired := c.Poll(domain.NewSample(false, 49), at(310), cfg)
	if !fired {
		t.Fatal("expected ShutdownRequested at t=310s, percent=49")
	}
	if ev.Percent != 49 || !ev.At.Equal(at(310)) || ev.ID != "evt-1" {
		t.Errorf("event = %+v", ev)
	}
	if c.State().Phase != domain.PhaseFired {
		t.Errorf("phase = %v, want fired", c.State().Phase)
	}

	for s := 312; s < 400; s += 2 {
		if _, fired := c.Poll(domain.NewSample(false, 40), at(s), cfg); fired {
			t.Fatalf("re-emitted at t=%ds while fired", s)
		}
	}
}

func TestPoll_ThresholdIsInclusive(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(1, 50)

	c.Poll(domain.NewSample(false, 50), at(0), cfg)
	if _, fired := c.Poll(domain.NewSample(false, 50), at(60), cfg); !fired {
		t.Error("percent == threshold at deadline should fire")
	}
}

// ─── Collapse to Idle ───────────────────────────────────────────────────────

func TestPoll_PlugInCollapsesToIdle(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Core, cfg domain.Config)
	}{
		{"armed", func(c *Core, cfg domain.Config) {
			c.Poll(domain.NewSample(false, 80), at(0), cfg)
		}},
		{"fired", func(c *Core, cfg domain.Config) {
			c.Poll(domain.NewSample(false, 10), at(0), cfg)
			c.Poll(domain.NewSample(false, 10), at(60), cfg)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCore()
			cfg := enabledConfig(1, 50)
			tt.setup(c, cfg)
			if c.State().Phase == domain.PhaseIdle {
				t.Fatal("setup left core idle")
			}

			c.Poll(domain.NewSample(true, 5), at(3600), cfg)
			if c.State().Phase != domain.PhaseIdle {
				t.Errorf("phase = %v, want idle after AC returns", c.State().Phase)
			}
		})
	}
}

func TestPoll_ReplugStartsNewCycle(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(1, 50)

	c.Poll(domain.NewSample(false, 10), at(0), cfg)
	if _, fired := c.Poll(domain.NewSample(false, 10), at(60), cfg); !fired {
		t.Fatal("first cycle should fire")
	}
	c.Poll(domain.NewSample(true, 10), at(62), cfg)
	c.Poll(domain.NewSample(false, 10), at(64), cfg)
	if want := at(124); !c.State().Deadline.Equal(want) {
		t.Errorf("new deadline = %v, want %v", c.State().Deadline, want)
	}
	if _, fired := c.Poll(domain.NewSample(false, 10), at(124), cfg); !fired {
		t.Error("second cycle should fire again")
	}
}

func TestPoll_DisableForcesIdle(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(5, 50)

	c.Poll(domain.NewSample(false, 80), at(0), cfg)

	disabled := cfg
	disabled.Enabled = false
	c.Poll(domain.NewSample(false, 20), at(400), disabled)
	if c.State().Phase != domain.PhaseIdle {
		t.Fatalf("phase = %v, want idle while disabled", c.State().Phase)
	}

	// Re-enabling on battery starts a fresh countdown, not the stale one.
	if _, fired := c.Poll(domain.NewSample(false, 20), at(402), cfg); fired {
		t.Fatal("re-enable resumed a stale countdown")
	}
	if want := at(702); !c.State().Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", c.State().Deadline, want)
	}
}

func TestPoll_AbsentSampleIsInert(t *testing.T) {
	c := newTestCore()
	cfg := enabledConfig(1, 50)

	c.Poll(domain.NewSample(false, 80), at(0), cfg)
	before := c.State()

	if _, fired := c.Poll(domain.Absent(), at(120), cfg); fired {
		t.Fatal("absent sample fired")
	}
	if c.State() != before {
		t.Errorf("state changed on absent sample: %+v -> %+v", before, c.State())
	}

	// Previous source survives the gap: battery again must not re-arm.
	c.Poll(domain.NewSample(false, 80), at(122), cfg)
	if !c.State().Deadline.Equal(before.Deadline) {
		t.Errorf("Deadline reset after absent gap")
	}
}

// ─── Properties ─────────────────────────────────────────────────────────────

func TestPoll_FiresAtMostOncePerCycle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newTestCore()
	cfg := enabledConfig(1, 50)

	firedThisCycle := false
	prevPhase := domain.PhaseIdle
	for i := 0; i < 20000; i++ {
		var s domain.PowerSample
		switch r := rng.Intn(100); {
		case r < 3:
			s = domain.Absent()
		case r < 10:
			s = domain.NewSample(true, rng.Intn(101))
		default:
			s = domain.NewSample(false, rng.Intn(101))
		}

		_, fired := c.Poll(s, at(i*10), cfg)
		phase := c.State().Phase

		if fired {
			if firedThisCycle {
				t.Fatalf("step %d: fired twice between idle states", i)
			}
			firedThisCycle = true
		}
		if phase == domain.PhaseIdle {
			firedThisCycle = false
		}
		if s.Present && s.OnAC && prevPhase != domain.PhaseIdle && phase != domain.PhaseIdle {
			t.Fatalf("step %d: AC sample left phase %v", i, phase)
		}
		prevPhase = phase
	}
}
