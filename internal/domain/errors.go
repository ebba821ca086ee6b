package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Config errors
	ErrInvalidDelay     = errors.New("delay must be between 1 and 60 minutes")
	ErrInvalidThreshold = errors.New("battery threshold must be between 1 and 100 percent")

	// Power errors
	ErrNoBattery   = errors.New("no battery detected")
	ErrUnsupported = errors.New("operation not supported on this platform")

	// Confirmation errors
	ErrSessionActive   = errors.New("a shutdown confirmation is already in progress")
	ErrNoActiveSession = errors.New("no shutdown confirmation in progress")
	ErrSessionResolved = errors.New("confirmation already resolved")

	// Daemon errors
	ErrDaemonUnreachable = errors.New("battguard daemon is not running")
)
