package domain

import "context"

// ─── Capability Interfaces ──────────────────────────────────────────────────
// The monitor and confirmation controller depend on these; platform
// adapters in infra implement them.

// PowerReader samples the machine's power state. It must return within
// one poll interval. An error is treated as an Absent sample.
type PowerReader interface {
	Sample(ctx context.Context) (PowerSample, error)
}

// ShutdownExecutor powers the machine off. The process may not survive
// a successful call.
type ShutdownExecutor interface {
	Execute(ctx context.Context) error
}

// Notifier delivers best-effort user notifications. Callers log and
// ignore errors.
type Notifier interface {
	Alert(ctx context.Context) error
	Toast(ctx context.Context, title, body string) error
}
