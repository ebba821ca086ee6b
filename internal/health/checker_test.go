package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/infra/metrics"
	"github.com/tutu-network/battguard/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type stubReader struct{ err error }

func (r stubReader) Sample(ctx context.Context) (domain.PowerSample, error) {
	return domain.NewSample(true, 80), r.err
}

func statusOf(t *testing.T, c *Checker, name string) Status {
	t.Helper()
	for _, s := range c.Statuses() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("check %q not found", name)
	return Status{}
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker_SkipsMissingDeps(t *testing.T) {
	c := NewChecker(Deps{DB: newTestDB(t)})
	if len(c.checks) != 1 || c.checks[0].Name != "sqlite" {
		t.Errorf("checks = %+v, want only sqlite", c.checks)
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	c := NewChecker(Deps{
		Reader:       stubReader{},
		DB:           newTestDB(t),
		Home:         t.TempDir(),
		LastPoll:     time.Now,
		PollInterval: time.Second,
	})
	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 4 {
		t.Fatalf("Statuses() = %d, want 4", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(Deps{Reader: stubReader{err: errors.New("boom")}})

	// Before any run, there are no statuses, so IsHealthy is vacuously true
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_PowerReaderFailure(t *testing.T) {
	c := NewChecker(Deps{Reader: stubReader{err: domain.ErrUnsupported}})
	c.runAll(context.Background())

	s := statusOf(t, c, "power_reader")
	if s.Healthy || s.Error == "" {
		t.Errorf("power_reader = %+v, want unhealthy with error", s)
	}
	if got := testutil.ToFloat64(metrics.HealthCheckStatus.WithLabelValues("power_reader")); got != 0 {
		t.Errorf("health gauge = %v, want 0", got)
	}
}

func TestChecker_ConfigDirRecovers(t *testing.T) {
	home := filepath.Join(t.TempDir(), "missing")
	c := NewChecker(Deps{Home: home})

	c.runAll(context.Background())
	if statusOf(t, c, "config_dir").Healthy {
		t.Fatal("config_dir should fail before the directory exists")
	}
	if _, err := os.Stat(home); err != nil {
		t.Fatalf("recovery should create %s: %v", home, err)
	}

	c.runAll(context.Background())
	if !statusOf(t, c, "config_dir").Healthy {
		t.Error("config_dir should pass after recovery")
	}
}

func TestChecker_ConfigDirIsFile(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	os.WriteFile(home, []byte("not a dir"), 0644)

	c := NewChecker(Deps{Home: home})
	c.runAll(context.Background())

	if statusOf(t, c, "config_dir").Healthy {
		t.Error("config_dir should fail when path is a file")
	}
}

func TestCheckFresh(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		last    time.Time
		started time.Time
		wantErr bool
	}{
		{"just started", time.Time{}, now.Add(-time.Second), false},
		{"never", time.Time{}, now.Add(-7 * time.Second), true},
		{"recent", now.Add(-3 * time.Second), now.Add(-time.Minute), false},
		{"stale", now.Add(-7 * time.Second), now.Add(-time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFresh(tt.last, tt.started, 2*time.Second, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkFresh() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChecker_CustomCheck(t *testing.T) {
	c := &Checker{
		checks: []Check{
			{
				Name: "always_pass",
				CheckFn: func(ctx context.Context) error {
					return nil
				},
			},
		},
	}

	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if !statuses[0].Healthy {
		t.Error("always_pass check should be healthy")
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	c := &Checker{interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMonitorLoop_HealthyBeforeFirstSample(t *testing.T) {
	c := NewChecker(Deps{
		LastPoll:     func() time.Time { return time.Time{} },
		PollInterval: 2 * time.Second,
	})
	c.runAll(context.Background())

	if !statusOf(t, c, "monitor_loop").Healthy {
		t.Error("monitor_loop should be healthy during the startup grace period")
	}
}
