package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tutu-network/battguard/internal/app/settings"
	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/infra/metrics"
)

// DefaultPollInterval is how often the power source is sampled.
const DefaultPollInterval = 2 * time.Second

// Journal records monitor transitions. Implemented by infra/sqlite.DB.
type Journal interface {
	RecordPowerEvent(ev domain.PowerEvent) error
}

// Options configures a Monitor.
type Options struct {
	PollInterval time.Duration
	Journal      Journal          // optional
	Now          func() time.Time // defaults to time.Now
}

// Status is a read-only view of the monitor for status displays.
type Status struct {
	Phase       string             `json:"phase"`
	Enabled     bool               `json:"enabled"`
	Deadline    *time.Time         `json:"deadline,omitempty"`
	UntilSecs   int                `json:"seconds_until_deadline,omitempty"`
	Sample      domain.PowerSample `json:"sample"`
	SampledAt   time.Time          `json:"sampled_at"`
	ReadFailing bool               `json:"read_failing,omitempty"`
}

// Monitor polls a PowerReader on a fixed cadence, feeds the Core and
// hands ShutdownRequested events to a single-slot channel. It never
// waits for the consumer.
type Monitor struct {
	reader   domain.PowerReader
	config   *settings.Shared
	core     *Core
	events   chan domain.ShutdownRequested
	journal  Journal
	now      func() time.Time
	interval time.Duration

	// loop-owned
	last        domain.PowerSample
	readFailing bool

	mu     sync.RWMutex
	status Status
}

// New creates a monitor. Call Run in a goroutine.
func New(reader domain.PowerReader, config *settings.Shared, opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		reader:   reader,
		config:   config,
		core:     NewCore(),
		events:   make(chan domain.ShutdownRequested, 1),
		journal:  opts.Journal,
		now:      opts.Now,
		interval: opts.PollInterval,
		status:   Status{Phase: domain.PhaseIdle.String()},
	}
}

// Events is the one-shot handoff to the confirmation side.
func (m *Monitor) Events() <-chan domain.ShutdownRequested {
	return m.events
}

// Interval returns the poll cadence.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("[monitor] polling every %s", m.interval)
	m.step(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.step(ctx)
		}
	}
}

// Status returns the latest snapshot. UntilSecs is computed at call time.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	s := m.status
	m.mu.RUnlock()

	if s.Deadline != nil && s.Phase == domain.PhaseArmed.String() {
		if left := s.Deadline.Sub(m.now()); left > 0 {
			s.UntilSecs = int(left.Round(time.Second) / time.Second)
		}
	}
	return s
}

// step runs one poll: sample, evaluate, hand off.
func (m *Monitor) step(ctx context.Context) {
	sampleCtx, cancel := context.WithTimeout(ctx, m.interval)
	sample, err := m.reader.Sample(sampleCtx)
	cancel()
	if err != nil {
		metrics.PowerReadErrors.Inc()
		if !m.readFailing {
			log.Printf("[monitor] power read failed, skipping cycles until it recovers: %v", err)
		}
		m.readFailing = true
		sample = domain.Absent()
	} else if m.readFailing {
		log.Printf("[monitor] power read recovered")
		m.readFailing = false
	}

	now := m.now()
	cfg := m.config.Read()
	before := m.core.State()

	ev, fired := m.core.Poll(sample, now, cfg)
	after := m.core.State()

	metrics.Polls.Inc()
	metrics.ObserveSample(sample.Present, sample.OnAC, sample.Percent)
	metrics.MonitorPhase.Set(float64(after.Phase))

	m.recordTransitions(now, cfg.Enabled, sample, before, after)
	m.last = sample
	m.publish(cfg, sample, now, after)

	if fired {
		log.Printf("[monitor] shutdown requested: battery %d%% <= %d%% past deadline %s",
			ev.Percent, cfg.BatteryPercent, ev.Deadline.Format(time.Kitchen))
		metrics.ShutdownRequests.Inc()
		select {
		case m.events <- ev:
		default:
			// Fired already guards against a second event; a full slot
			// means the consumer is gone.
			metrics.EventsDropped.Inc()
			log.Printf("[monitor] handoff slot full, dropped event %s", ev.ID)
		}
	}
}

func (m *Monitor) publish(cfg domain.Config, sample domain.PowerSample, now time.Time, st domain.MonitorState) {
	s := Status{
		Phase:       st.Phase.String(),
		Enabled:     cfg.Enabled,
		Sample:      sample,
		SampledAt:   now,
		ReadFailing: m.readFailing,
	}
	if st.Phase != domain.PhaseIdle {
		d := st.Deadline
		s.Deadline = &d
	}
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// recordTransitions logs and journals source and phase changes.
func (m *Monitor) recordTransitions(now time.Time, enabled bool, sample domain.PowerSample, before, after domain.MonitorState) {
	var kinds []domain.PowerEventKind

	switch {
	case m.last.Present && !sample.Present:
		kinds = append(kinds, domain.EventBatteryLost)
	case sample.Present && (!m.last.Present || m.last.OnAC != sample.OnAC):
		if sample.OnAC {
			kinds = append(kinds, domain.EventPlugged)
		} else {
			kinds = append(kinds, domain.EventUnplugged)
		}
	}

	if before.Phase != after.Phase {
		switch after.Phase {
		case domain.PhaseArmed:
			log.Printf("[monitor] on battery, shutdown check armed until %s", after.Deadline.Format(time.Kitchen))
			kinds = append(kinds, domain.EventArmed)
		case domain.PhaseIdle:
			reason := sample.Source()
			if !enabled {
				reason = "disabled"
			}
			log.Printf("[monitor] countdown cancelled (%s)", reason)
			kinds = append(kinds, domain.EventDisarmed)
		case domain.PhaseFired:
			kinds = append(kinds, domain.EventFired)
		}
	}

	if m.journal == nil {
		return
	}
	for _, k := range kinds {
		err := m.journal.RecordPowerEvent(domain.PowerEvent{
			At:      now,
			Kind:    k,
			OnAC:    sample.OnAC,
			Percent: sample.Percent,
			Phase:   after.Phase.String(),
		})
		if err != nil {
			log.Printf("[monitor] journal %s: %v", k, err)
		}
	}
}
