package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/battguard/internal/api"
	"github.com/tutu-network/battguard/internal/app/confirm"
	"github.com/tutu-network/battguard/internal/app/monitor"
	"github.com/tutu-network/battguard/internal/daemon"
	"github.com/tutu-network/battguard/internal/domain"
)

// unreachable is a loopback address nothing listens on.
const unreachable = "127.0.0.1:1"

func withAddr(t *testing.T, addr string) {
	t.Helper()
	prev := daemonAddr
	daemonAddr = addr
	t.Cleanup(func() { daemonAddr = prev })
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	return cmd, &out
}

// ─── Client ─────────────────────────────────────────────────────────────────

func TestClient_Unreachable(t *testing.T) {
	err := newClientFor(unreachable).do(context.Background(), "GET", "/api/status", nil, nil)
	if !errors.Is(err, domain.ErrDaemonUnreachable) {
		t.Errorf("err = %v, want ErrDaemonUnreachable", err)
	}
}

func TestClient_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"delay must be between 1 and 60 minutes","type":"error"}}`)
	}))
	defer ts.Close()

	err := newClientFor(ts.URL).do(context.Background(), "PUT", "/api/config", map[string]int{"delay_minutes": 0}, nil)
	if !isStatus(err, http.StatusBadRequest) {
		t.Fatalf("err = %v, want 400 apiError", err)
	}
	if !strings.Contains(err.Error(), "between 1 and 60") {
		t.Errorf("message lost: %v", err)
	}
}

func TestNewClientFor_AddsScheme(t *testing.T) {
	if c := newClientFor("127.0.0.1:7878"); c.base != "http://127.0.0.1:7878" {
		t.Errorf("base = %q", c.base)
	}
	if c := newClientFor("http://localhost:9/"); c.base != "http://localhost:9" {
		t.Errorf("base = %q", c.base)
	}
}

// ─── Commands ───────────────────────────────────────────────────────────────

func TestCancel_NothingPending(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":{"message":"no shutdown confirmation in progress"}}`)
	}))
	defer ts.Close()
	withAddr(t, ts.URL)

	cmd, out := testCmd()
	if err := runCancel(cmd, nil); err != nil {
		t.Fatalf("runCancel() error: %v", err)
	}
	if !strings.Contains(out.String(), "No shutdown pending") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCancel_Pending(t *testing.T) {
	var method, path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		io.WriteString(w, `{"cancelled":true}`)
	}))
	defer ts.Close()
	withAddr(t, ts.URL)

	cmd, out := testCmd()
	if err := runCancel(cmd, nil); err != nil {
		t.Fatalf("runCancel() error: %v", err)
	}
	if method != "POST" || path != "/api/confirmation/cancel" {
		t.Errorf("request = %s %s", method, path)
	}
	if !strings.Contains(out.String(), "Shutdown cancelled") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnable_FallsBackToConfigFile(t *testing.T) {
	t.Setenv("BATTGUARD_HOME", t.TempDir())
	withAddr(t, unreachable)

	cmd, out := testCmd()
	if err := enableCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("enable error: %v", err)
	}
	if !strings.Contains(out.String(), "Daemon not running") {
		t.Errorf("output = %q", out.String())
	}

	cfg, err := daemon.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Guard.Enabled {
		t.Error("enable should persist to the config file")
	}
}

func TestPatchFile_RejectsInvalid(t *testing.T) {
	t.Setenv("BATTGUARD_HOME", t.TempDir())
	zero := 0
	if _, err := patchFile(api.ConfigPatch{BatteryPercent: &zero}); !errors.Is(err, domain.ErrInvalidThreshold) {
		t.Errorf("err = %v, want ErrInvalidThreshold", err)
	}
}

func TestSet_SendsOnlyChangedFields(t *testing.T) {
	var body map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		cfg := domain.DefaultConfig()
		cfg.BatteryPercent = 30
		json.NewEncoder(w).Encode(cfg)
	}))
	defer ts.Close()
	t.Cleanup(func() { daemonAddr = "" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"set", "--percent", "30", "--addr", ts.URL})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("set error: %v", err)
	}

	if len(body) != 1 || body["battery_percent"] != float64(30) {
		t.Errorf("patch body = %v, want only battery_percent", body)
	}
	if !strings.Contains(out.String(), "at or below 30%") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSet_RequiresAFlag(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Int("delay", 0, "")
	cmd.Flags().Int("percent", 0, "")
	cmd.Flags().Bool("sound", true, "")
	if err := runSet(cmd, nil); err == nil {
		t.Error("expected error with no flags")
	}
}

// ─── Output ─────────────────────────────────────────────────────────────────

func TestPrintStatus(t *testing.T) {
	st := api.StatusResponse{
		Monitor: monitor.Status{Phase: "armed", UntilSecs: 90, Sample: domain.NewSample(false, 47)},
		Config:  domain.Config{Enabled: true, DelayMinutes: 5, BatteryPercent: 50, SoundEnabled: true},
		Confirmation: &confirm.Info{
			Remaining: 17,
			Deadline:  time.Now().Add(17 * time.Second),
		},
	}
	var out bytes.Buffer
	if err := printStatus(&out, st); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"enabled (after 5 min", "battery, 47%", "armed, threshold check in 1m30s", "in 17s"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrintStatus_NoBattery(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, api.StatusResponse{Monitor: monitor.Status{Phase: "idle"}})
	if !strings.Contains(out.String(), "no battery detected") || !strings.Contains(out.String(), "disabled") {
		t.Errorf("output = %s", out.String())
	}
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	printEvents(&out, nil)
	if !strings.Contains(out.String(), "No power events") {
		t.Errorf("empty events output = %q", out.String())
	}

	out.Reset()
	printSessions(&out, []domain.SessionRecord{
		{OpenedAt: time.Now(), Outcome: domain.OutcomeExpired, Percent: 12, Error: "permission denied"},
	})
	if !strings.Contains(out.String(), "expired") || !strings.Contains(out.String(), "permission denied") {
		t.Errorf("sessions output = %q", out.String())
	}
}
