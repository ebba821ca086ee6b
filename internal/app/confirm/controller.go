// Package confirm owns the cancellable countdown that sits between a
// shutdown request and the actual power-off.
package confirm

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tutu-network/battguard/internal/app/settings"
	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/infra/metrics"
	"github.com/tutu-network/battguard/internal/infra/system"
)

// DefaultCountdown is the confirmation window in ticks (seconds).
const DefaultCountdown = 30

const shutdownTimeout = 30 * time.Second

// Journal records session lifecycle. Implemented by infra/sqlite.DB.
// ResolveSession may be called twice for an expired session: once before
// the shutdown call and once more if it failed.
type Journal interface {
	OpenSession(rec domain.SessionRecord) error
	ResolveSession(id string, outcome domain.SessionOutcome, at time.Time, errMsg string) error
}

// UpdateKind identifies a session update pushed to listeners.
type UpdateKind string

const (
	UpdateOpened   UpdateKind = "opened"
	UpdateTick     UpdateKind = "tick"
	UpdateResolved UpdateKind = "resolved"
)

// Update is a session change pushed to listeners.
type Update struct {
	Kind    UpdateKind `json:"kind"`
	Session Info       `json:"session"`
}

// Options configures a Controller.
type Options struct {
	Countdown    int           // ticks, default 30
	TickInterval time.Duration // default 1s
	Journal      Journal       // optional
	Now          func() time.Time

	// NewTicker replaces time.NewTicker in tests.
	NewTicker func(d time.Duration) (<-chan time.Time, func())
}

// Controller opens at most one confirmation session at a time. On cancel
// it disables auto-shutdown through the shared config; on expiry it calls
// the ShutdownExecutor exactly once.
type Controller struct {
	config   *settings.Shared
	executor domain.ShutdownExecutor
	notifier domain.Notifier
	journal  Journal
	opts     Options

	mu        sync.Mutex
	active    *Session
	listeners []func(Update)
	wg        sync.WaitGroup
}

// NewController creates a controller.
func NewController(config *settings.Shared, executor domain.ShutdownExecutor, notifier domain.Notifier, opts Options) *Controller {
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	c := &Controller{
		config:   config,
		executor: executor,
		notifier: notifier,
		journal:  opts.Journal,
		opts:     opts,
	}
	config.OnChange(c.configChanged)
	return c
}

// configChanged stops the open countdown when auto-shutdown is disabled
// from outside the session (CLI disable, PUT /api/config).
func (c *Controller) configChanged(prev, next domain.Config) {
	if !prev.Enabled || next.Enabled {
		return
	}
	if s := c.Active(); s != nil {
		s.disabled()
	}
}

// Subscribe registers fn for session updates. fn runs on the countdown
// goroutine and must not block or call Cancel.
func (c *Controller) Subscribe(fn func(Update)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Active returns the open session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Run opens a session for every event until ctx is cancelled. An open
// session is aborted (not cancelled) when ctx ends.
func (c *Controller) Run(ctx context.Context, events <-chan domain.ShutdownRequested) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := c.Open(ctx, ev); err != nil {
				log.Printf("[confirm] ignoring shutdown request %s: %v", ev.ID, err)
			}
		}
	}
}

// Open starts the countdown for ev. The session is aborted if ctx ends
// before it resolves.
func (c *Controller) Open(ctx context.Context, ev domain.ShutdownRequested) (*Session, error) {
	now := c.opts.Now()

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, domain.ErrSessionActive
	}
	s := newSession(uuid.NewString(), ev, now, c.opts.Countdown, c.opts.TickInterval)
	c.active = s
	c.mu.Unlock()

	cfg := c.config.Read()
	log.Printf("[confirm] battery at %d%%, shutting down in %ds unless cancelled", ev.Percent, c.opts.Countdown)

	if c.journal != nil {
		err := c.journal.OpenSession(domain.SessionRecord{
			ID:       s.ID,
			EventID:  ev.ID,
			OpenedAt: now,
			Outcome:  domain.OutcomeOpen,
			Percent:  ev.Percent,
		})
		if err != nil {
			log.Printf("[confirm] journal open %s: %v", s.ID, err)
		}
	}

	if cfg.SoundEnabled {
		go c.alert()
	}
	go c.toast("Battery low",
		fmt.Sprintf("Battery at %d%%. Shutting down in %d seconds. Run \"battguard cancel\" to stop.", ev.Percent, c.opts.Countdown))

	s.emitTick(c.opts.Countdown)
	c.broadcast(UpdateOpened, s)

	tickC, stop := c.opts.NewTicker(c.opts.TickInterval)
	c.wg.Add(1)
	go c.countdown(ctx, s, tickC, stop)
	return s, nil
}

// Wait blocks until every countdown goroutine has resolved its session.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Cancel cancels the open session.
func (c *Controller) Cancel() error {
	s := c.Active()
	if s == nil {
		return domain.ErrNoActiveSession
	}
	if !s.Cancel() {
		return domain.ErrSessionResolved
	}
	return nil
}

// countdown is the session goroutine. It is the only place a session
// resolves, so cancel and expiry cannot both happen.
func (c *Controller) countdown(ctx context.Context, s *Session, tickC <-chan time.Time, stop func()) {
	defer c.wg.Done()
	defer stop()
	for {
		select {
		case <-s.cancelReq:
			c.resolveCancelled(s)
			return
		case <-s.disableReq:
			c.resolveDisabled(s)
			return
		case <-ctx.Done():
			c.resolveAborted(s)
			return
		case <-tickC:
			// A cancel or disable that raced the tick wins.
			select {
			case <-s.cancelReq:
				c.resolveCancelled(s)
				return
			case <-s.disableReq:
				c.resolveDisabled(s)
				return
			default:
			}

			remaining := s.decrement()
			s.emitTick(remaining)
			if remaining == 0 {
				c.resolveExpired(s)
				return
			}
			c.broadcast(UpdateTick, s)
		}
	}
}

func (c *Controller) resolveCancelled(s *Session) {
	c.config.SetEnabled(false)
	log.Printf("[confirm] shutdown cancelled with %ds left, auto-shutdown disabled", s.Remaining())
	go c.toast("Shutdown cancelled", "Automatic shutdown has been disabled.")

	c.finish(s, domain.OutcomeCancelled)
}

// resolveDisabled is a cancel whose config write already happened.
func (c *Controller) resolveDisabled(s *Session) {
	log.Printf("[confirm] auto-shutdown disabled with %ds left, shutdown cancelled", s.Remaining())
	go c.toast("Shutdown cancelled", "Automatic shutdown was disabled.")

	c.finish(s, domain.OutcomeCancelled)
}

func (c *Controller) resolveAborted(s *Session) {
	log.Printf("[confirm] countdown aborted, daemon stopping")
	c.finish(s, domain.OutcomeAborted)
}

func (c *Controller) resolveExpired(s *Session) {
	log.Printf("[confirm] countdown expired, shutting down")
	c.recordResolution(s.ID, domain.OutcomeExpired, "")
	metrics.Confirmations.WithLabelValues(string(domain.OutcomeExpired)).Inc()
	go c.toast("Shutting down", "Battery protection is powering off this computer.")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err := c.executor.Execute(ctx)
	cancel()

	if err != nil {
		err = fmt.Errorf("execute shutdown: %w", err)
		metrics.ShutdownFailures.Inc()
		log.Printf("[confirm] %v", err)
		c.recordResolution(s.ID, domain.OutcomeExpired, err.Error())
		go c.toast("Shutdown failed", err.Error())
	}

	c.clearActive(s)
	s.setOutcome(domain.OutcomeExpired, err)
	c.broadcast(UpdateResolved, s)
	s.finish()
}

// finish resolves s. The controller forgets s before Done closes.
func (c *Controller) finish(s *Session, outcome domain.SessionOutcome) {
	c.recordResolution(s.ID, outcome, "")
	metrics.Confirmations.WithLabelValues(string(outcome)).Inc()

	c.clearActive(s)
	s.setOutcome(outcome, nil)
	c.broadcast(UpdateResolved, s)
	s.finish()
}

func (c *Controller) clearActive(s *Session) {
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
}

func (c *Controller) recordResolution(id string, outcome domain.SessionOutcome, errMsg string) {
	if c.journal == nil {
		return
	}
	if err := c.journal.ResolveSession(id, outcome, c.opts.Now(), errMsg); err != nil {
		log.Printf("[confirm] journal resolve %s: %v", id, err)
	}
}

func (c *Controller) broadcast(kind UpdateKind, s *Session) {
	c.mu.Lock()
	listeners := make([]func(Update), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	u := Update{Kind: kind, Session: s.Info()}
	for _, fn := range listeners {
		fn(u)
	}
}

func (c *Controller) alert() {
	ctx, cancel := context.WithTimeout(context.Background(), system.NotifyTimeout)
	defer cancel()
	if err := c.notifier.Alert(ctx); err != nil {
		metrics.NotifyFailures.WithLabelValues("alert").Inc()
		log.Printf("[confirm] alert sound failed: %v", err)
	}
}

func (c *Controller) toast(title, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), system.NotifyTimeout)
	defer cancel()
	if err := c.notifier.Toast(ctx, title, body); err != nil {
		metrics.NotifyFailures.WithLabelValues("toast").Inc()
		log.Printf("[confirm] toast %q failed: %v", title, err)
	}
}
