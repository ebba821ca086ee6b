package system

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/tutu-network/battguard/internal/domain"
)

// ShutdownCommand returns the power-off command for goos.
func ShutdownCommand(goos string) (Command, error) {
	switch goos {
	case "windows":
		return Command{Name: "shutdown", Args: []string{"/s", "/t", "0"}}, nil
	case "darwin":
		return Command{Name: "sudo", Args: []string{"shutdown", "-h", "now"}}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return Command{Name: "shutdown", Args: []string{"-h", "now"}}, nil
	default:
		return Command{}, fmt.Errorf("shutdown on %s: %w", goos, domain.ErrUnsupported)
	}
}

// Shutdown powers the machine off.
type Shutdown struct {
	cmd Command
	run runFunc
}

// NewShutdown returns the executor for the running platform.
func NewShutdown() (*Shutdown, error) {
	cmd, err := ShutdownCommand(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	return &Shutdown{cmd: cmd, run: execCombined}, nil
}

// Command returns what Execute runs.
func (s *Shutdown) Command() Command { return s.cmd }

// Execute implements domain.ShutdownExecutor.
func (s *Shutdown) Execute(ctx context.Context) error {
	log.Printf("[system] executing %s", s.cmd)
	return run(ctx, s.run, s.cmd)
}

// DryRun logs instead of shutting down.
type DryRun struct {
	Would Command
}

// Execute implements domain.ShutdownExecutor.
func (d DryRun) Execute(ctx context.Context) error {
	log.Printf("[system] dry run: would execute %s", d.Would)
	return nil
}
