// Package power implements domain.PowerReader for each platform: sysfs on
// Linux, pmset on macOS and CIM on Windows, plus a simulated reader for
// demos and tests.
package power

import (
	"context"
	"os/exec"
)

// runFunc runs a command and returns its stdout. Replaced in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
