// Package metrics provides Prometheus metrics for battguard.
// Gauges mirror the latest power sample and monitor phase; counters track
// shutdown requests, confirmation outcomes and best-effort failures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Power ──────────────────────────────────────────────────────────────────

// OnAC is 1 while on external power, 0 on battery.
var OnAC = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "battguard",
	Name:      "on_ac",
	Help:      "1 when running on external power, 0 on battery.",
})

// BatteryPercent tracks the latest charge reading.
var BatteryPercent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "battguard",
	Name:      "battery_percent",
	Help:      "Latest battery charge percentage.",
})

// BatteryPresent is 0 when the last sample found no battery.
var BatteryPresent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "battguard",
	Name:      "battery_present",
	Help:      "1 when a battery was detected on the last poll.",
})

// PowerReadErrors counts failed PowerReader samples.
var PowerReadErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "power_read_errors_total",
	Help:      "Total failed power samples (treated as absent).",
})

// ─── Monitor ────────────────────────────────────────────────────────────────

// MonitorPhase tracks the state machine (0=Idle, 1=Armed, 2=Fired).
var MonitorPhase = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "battguard",
	Name:      "monitor_phase",
	Help:      "Monitor phase (0=Idle, 1=Armed, 2=Fired).",
})

// Polls counts monitor poll iterations.
var Polls = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "polls_total",
	Help:      "Total monitor poll iterations.",
})

// ShutdownRequests counts emitted ShutdownRequested events.
var ShutdownRequests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "shutdown_requests_total",
	Help:      "Total shutdown requests raised by the monitor.",
})

// EventsDropped counts events the handoff slot could not accept.
var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "events_dropped_total",
	Help:      "Shutdown requests dropped because the handoff slot was full.",
})

// ─── Confirmation ───────────────────────────────────────────────────────────

// Confirmations counts resolved confirmation sessions by outcome.
var Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "confirmations_total",
	Help:      "Resolved confirmation sessions by outcome.",
}, []string{"outcome"})

// ShutdownFailures counts ShutdownExecutor errors.
var ShutdownFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "shutdown_failures_total",
	Help:      "Total failed shutdown executions.",
})

// NotifyFailures counts failed best-effort notifications by kind.
var NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "battguard",
	Name:      "notify_failures_total",
	Help:      "Failed notifications by kind (alert, toast).",
}, []string{"kind"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "battguard",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ObserveSample updates the power gauges from one sample.
func ObserveSample(present, onAC bool, percent int) {
	if !present {
		BatteryPresent.Set(0)
		return
	}
	BatteryPresent.Set(1)
	BatteryPercent.Set(float64(percent))
	if onAC {
		OnAC.Set(1)
	} else {
		OnAC.Set(0)
	}
}
