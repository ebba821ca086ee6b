package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tutu-network/battguard/internal/api"
	"github.com/tutu-network/battguard/internal/app/confirm"
	"github.com/tutu-network/battguard/internal/app/monitor"
	"github.com/tutu-network/battguard/internal/app/settings"
	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/health"
	"github.com/tutu-network/battguard/internal/infra/power"
	"github.com/tutu-network/battguard/internal/infra/sqlite"
	"github.com/tutu-network/battguard/internal/infra/system"
)

// Options are the command-line overrides for a daemon run.
type Options struct {
	Simulate bool   // scripted battery instead of the real one; implies DryRun
	DryRun   bool   // log the shutdown command instead of running it
	Addr     string // overrides api.host/api.port
}

// Daemon is the battguard runtime. It wires together all services.
type Daemon struct {
	Config   Config
	Settings *settings.Shared
	DB       *sqlite.DB // nil when the journal is disabled
	Reader   domain.PowerReader
	Monitor  *monitor.Monitor
	Confirm  *confirm.Controller
	Health   *health.Checker
	Server   *api.Server

	notifier domain.Notifier
	addr     string
	logFile  io.Closer
	saveMu   sync.Mutex
	cancel   context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New(opts Options) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, opts)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, opts Options) (*Daemon, error) {
	d := &Daemon{
		Config:   cfg,
		Settings: settings.NewShared(cfg.Guard),
		notifier: system.NewNotifier(),
		addr:     cfg.Addr(),
	}
	if opts.Addr != "" {
		d.addr = opts.Addr
	}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
		d.logFile = f
	}

	// Power source
	if opts.Simulate {
		d.Reader = power.NewSimReader(power.SimOptions{
			StartPercent:   60,
			PluggedFor:     10 * time.Second,
			DrainPerMinute: 10,
		})
		opts.DryRun = true
		log.Printf("[daemon] simulating battery: unplug in 10s, 60%% draining 10%%/min")
	} else {
		d.Reader = power.NewReader()
	}

	// Shutdown executor
	executor, err := newExecutor(opts.DryRun)
	if err != nil {
		d.Close()
		return nil, err
	}

	// Event journal
	var monJournal monitor.Journal
	var confJournal confirm.Journal
	if cfg.Journal.Enabled {
		db, err := sqlite.Open(Home())
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		d.DB = db
		monJournal, confJournal = db, db
		d.tidyJournal()
	}

	d.Monitor = monitor.New(d.Reader, d.Settings, monitor.Options{
		PollInterval: cfg.PollInterval(),
		Journal:      monJournal,
	})
	d.Confirm = confirm.NewController(d.Settings, executor, d.notifier, confirm.Options{
		Journal: confJournal,
	})

	healthDeps := health.Deps{
		Reader:       d.Reader,
		Home:         Home(),
		LastPoll:     func() time.Time { return d.Monitor.Status().SampledAt },
		PollInterval: cfg.PollInterval(),
	}
	if d.DB != nil {
		healthDeps.DB = d.DB
	}
	d.Health = health.NewChecker(healthDeps)

	// Control API
	d.Server = api.NewServer(d.Settings, d.Monitor, d.Confirm)
	d.Server.SetHealth(d.Health)
	d.Server.SetCORSOrigins(cfg.API.CORSOrigins)
	if d.DB != nil {
		d.Server.SetJournal(d.DB)
	}
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	d.Confirm.Subscribe(d.Server.Hub().PublishUpdate)
	d.Settings.OnChange(d.configChanged)

	return d, nil
}

func newExecutor(dryRun bool) (domain.ShutdownExecutor, error) {
	if dryRun {
		cmd, _ := system.ShutdownCommand("linux")
		if sd, err := system.NewShutdown(); err == nil {
			cmd = sd.Command()
		}
		return system.DryRun{Would: cmd}, nil
	}
	sd, err := system.NewShutdown()
	if err != nil {
		return nil, fmt.Errorf("shutdown executor: %w", err)
	}
	return sd, nil
}

// tidyJournal closes out sessions a crashed daemon left open and applies
// the retention window.
func (d *Daemon) tidyJournal() {
	now := time.Now()
	if n, err := d.DB.AbandonOpenSessions(now); err != nil {
		log.Printf("[daemon] journal: %v", err)
	} else if n > 0 {
		log.Printf("[daemon] marked %d interrupted confirmation(s) as aborted", n)
	}
	if days := d.Config.Journal.RetentionDays; days > 0 {
		if _, err := d.DB.Prune(now.AddDate(0, 0, -days)); err != nil {
			log.Printf("[daemon] journal prune: %v", err)
		}
	}
}

// configChanged persists every guard change and tells listeners about it.
func (d *Daemon) configChanged(prev, next domain.Config) {
	// Concurrent writers may run hooks out of order; always save the latest.
	d.saveMu.Lock()
	d.Config.Guard = d.Settings.Read()
	cfg := d.Config
	err := SaveConfig(cfg)
	d.saveMu.Unlock()
	if err != nil {
		log.Printf("[daemon] save config: %v", err)
	}

	d.Server.Hub().PublishConfig(next)

	if !prev.Enabled && next.Enabled {
		log.Printf("[daemon] auto-shutdown enabled: %d min on battery and at most %d%%",
			next.DelayMinutes, next.BatteryPercent)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			body := fmt.Sprintf("Shutdown after %d minutes on battery at %d%% or less.", next.DelayMinutes, next.BatteryPercent)
			if err := d.notifier.Toast(ctx, "Auto-shutdown enabled", body); err != nil {
				log.Printf("[daemon] toast: %v", err)
			}
		}()
	} else if prev.Enabled && !next.Enabled {
		log.Printf("[daemon] auto-shutdown disabled")
	}
}

// Addr returns the control API listen address.
func (d *Daemon) Addr() string { return d.addr }

// Serve starts the monitor, the confirmation loop and the control API,
// and blocks until ctx ends or a signal arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	d.announcePower(ctx)

	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.addr, err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); d.Monitor.Run(ctx) }()
	go func() { defer wg.Done(); d.Confirm.Run(ctx, d.Monitor.Events()) }()
	go func() { defer wg.Done(); d.Health.Run(ctx) }()

	httpServer := &http.Server{
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // /api/stream is long-lived
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("[daemon] received %s, stopping", sig)
			cancel()
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		d.Server.Hub().Close()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("battguard listening on http://%s\n", ln.Addr())
	cfg := d.Settings.Read()
	fmt.Printf("  Auto-shutdown: %s (%d min, %d%%)\n", onOff(cfg.Enabled), cfg.DelayMinutes, cfg.BatteryPercent)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", ln.Addr())
	}

	err = httpServer.Serve(ln)
	cancel()
	wg.Wait()
	d.Confirm.Wait()
	d.Close()

	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// announcePower logs once whether a battery is visible at startup.
func (d *Daemon) announcePower(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	sample, err := d.Reader.Sample(ctx)
	switch {
	case err != nil:
		log.Printf("[daemon] cannot read power state: %v (guard stays idle until it can)", err)
	case !sample.Present:
		log.Printf("[daemon] no battery detected; guard stays idle until one appears")
	default:
		log.Printf("[daemon] battery at %d%%, on %s", sample.Percent, sample.Source())
	}
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
	if d.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = d.logFile.Close()
		d.logFile = nil
	}
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
