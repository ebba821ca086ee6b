// Package system runs the host commands battguard depends on: powering the
// machine off and alerting the user.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command is a program and its arguments.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, cmd Command) ([]byte, error)

func execCombined(ctx context.Context, cmd Command) ([]byte, error) {
	return exec.CommandContext(ctx, cmd.Name, cmd.Args...).CombinedOutput()
}

func run(ctx context.Context, runner runFunc, cmd Command) error {
	out, err := runner(ctx, cmd)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", cmd, err, msg)
		}
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}
