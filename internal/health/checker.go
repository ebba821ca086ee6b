// Package health provides periodic self-checks for the battguard daemon.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/infra/metrics"
)

const (
	defaultInterval = 30 * time.Second
	checkTimeout    = 5 * time.Second
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping() error
}

// Deps are the components the standard checks inspect. Nil fields skip
// the corresponding check.
type Deps struct {
	Reader       domain.PowerReader
	DB           Pinger
	Home         string           // config directory, must stay writable
	LastPoll     func() time.Time // when the monitor last sampled
	PollInterval time.Duration
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a health checker with the standard checks for d.
func NewChecker(d Deps) *Checker {
	c := &Checker{interval: defaultInterval}
	started := time.Now()

	if d.Reader != nil {
		c.checks = append(c.checks, Check{
			Name: "power_reader",
			CheckFn: func(ctx context.Context) error {
				_, err := d.Reader.Sample(ctx)
				return err
			},
		})
	}
	if d.DB != nil {
		c.checks = append(c.checks, Check{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return d.DB.Ping()
			},
		})
	}
	if d.Home != "" {
		c.checks = append(c.checks, Check{
			Name: "config_dir",
			CheckFn: func(ctx context.Context) error {
				return checkWritable(d.Home)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(d.Home, 0700)
			},
		})
	}
	if d.LastPoll != nil {
		c.checks = append(c.checks, Check{
			Name: "monitor_loop",
			CheckFn: func(ctx context.Context) error {
				return checkFresh(d.LastPoll(), started, d.PollInterval, time.Now())
			},
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}

		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check.CheckFn(checkCtx)
		if err != nil {
			s.Error = err.Error()
			if check.RecoverFn != nil {
				_ = check.RecoverFn(checkCtx)
			}
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		cancel()
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check config dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("config dir not writable: %w", err)
	}
	f.Close()
	return os.Remove(f.Name())
}

// checkFresh fails when the monitor has not sampled for three intervals.
// Before the first sample the grace period runs from started.
func checkFresh(last, started time.Time, interval time.Duration, now time.Time) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if last.IsZero() {
		if now.Sub(started) > 3*interval {
			return fmt.Errorf("monitor has not sampled since %s", started.Format(time.RFC3339))
		}
		return nil
	}
	if age := now.Sub(last); age > 3*interval {
		return fmt.Errorf("last sample %s ago", age.Round(time.Second))
	}
	return nil
}
