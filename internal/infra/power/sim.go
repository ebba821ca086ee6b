package power

import (
	"context"
	"sync"
	"time"

	"github.com/tutu-network/battguard/internal/domain"
)

// SimOptions shapes a simulated discharge.
type SimOptions struct {
	StartPercent   int           // charge when the adapter is pulled, default 100
	PluggedFor     time.Duration // time on AC before unplugging
	DrainPerMinute float64       // percent lost per minute on battery, default 10
	Now            func() time.Time
}

// SimReader plays back a scripted unplug-and-drain cycle: on AC for
// PluggedFor, then on battery losing DrainPerMinute percent per minute.
// Plug and Unplug override the script at runtime.
type SimReader struct {
	opts SimOptions

	mu        sync.Mutex
	unplugAt  time.Time
	pctAtPull int
	forcedAC  bool
}

// NewSimReader creates a simulated reader starting now.
func NewSimReader(opts SimOptions) *SimReader {
	if opts.StartPercent <= 0 || opts.StartPercent > 100 {
		opts.StartPercent = 100
	}
	if opts.DrainPerMinute <= 0 {
		opts.DrainPerMinute = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SimReader{
		opts:      opts,
		unplugAt:  opts.Now().Add(opts.PluggedFor),
		pctAtPull: opts.StartPercent,
	}
}

// Sample implements domain.PowerReader.
func (r *SimReader) Sample(ctx context.Context) (domain.PowerSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Now()
	if r.forcedAC || now.Before(r.unplugAt) {
		return domain.NewSample(true, r.pctAtPull), nil
	}
	return domain.NewSample(false, r.percentAt(now)), nil
}

// Plug puts the simulated machine on AC until Unplug.
func (r *SimReader) Plug() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.forcedAC {
		r.pctAtPull = r.percentAt(r.opts.Now())
	}
	r.forcedAC = true
}

// Unplug starts draining from the current charge.
func (r *SimReader) Unplug() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Now()
	if !r.forcedAC && !now.Before(r.unplugAt) {
		return
	}
	r.forcedAC = false
	r.unplugAt = now
}

func (r *SimReader) percentAt(now time.Time) int {
	if now.Before(r.unplugAt) {
		return r.pctAtPull
	}
	drained := now.Sub(r.unplugAt).Minutes() * r.opts.DrainPerMinute
	return r.pctAtPull - int(drained)
}
