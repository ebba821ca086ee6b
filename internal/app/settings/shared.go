// Package settings holds the live guard configuration shared between the
// control surface (writer) and the monitor loop (reader).
package settings

import (
	"sync"

	"github.com/tutu-network/battguard/internal/domain"
)

// Shared is a thread-safe holder for domain.Config. Reads return a full
// snapshot taken under the lock, so a reader never sees fields from two
// different writes.
type Shared struct {
	mu       sync.RWMutex
	cfg      domain.Config
	onChange []func(prev, next domain.Config)
}

// NewShared creates a holder seeded with cfg (normalized).
func NewShared(cfg domain.Config) *Shared {
	return &Shared{cfg: cfg.Normalize()}
}

// Read returns the current configuration snapshot.
func (s *Shared) Read() domain.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Write applies mutate to a copy of the current config, normalizes it and
// publishes it atomically. Change hooks run after the lock is released.
func (s *Shared) Write(mutate func(*domain.Config)) domain.Config {
	s.mu.Lock()
	prev := s.cfg
	next := prev
	mutate(&next)
	next = next.Normalize()
	s.cfg = next
	hooks := s.onChange
	s.mu.Unlock()

	if prev != next {
		for _, fn := range hooks {
			fn(prev, next)
		}
	}
	return next
}

// Enabled is shorthand for Read().Enabled.
func (s *Shared) Enabled() bool {
	return s.Read().Enabled
}

// SetEnabled toggles auto-shutdown.
func (s *Shared) SetEnabled(on bool) domain.Config {
	return s.Write(func(c *domain.Config) { c.Enabled = on })
}

// OnChange registers fn to run after every write that changed the config.
// Hooks run on the writer's goroutine and must not call Write.
func (s *Shared) OnChange(fn func(prev, next domain.Config)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}
