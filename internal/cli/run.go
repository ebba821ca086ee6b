package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tutu-network/battguard/internal/daemon"
)

func init() {
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Use a scripted battery that unplugs and drains (implies --dry-run)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log the shutdown command instead of running it")
	rootCmd.AddCommand(runCmd)
}

var (
	runSimulate bool
	runDryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the battguard daemon in the foreground",
	Long:  `Start the power monitor, the confirmation countdown and the control API at localhost:7878.`,
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(daemon.Options{
		Simulate: runSimulate,
		DryRun:   runDryRun,
		Addr:     daemonAddr,
	})
	if err != nil {
		return err
	}
	return d.Serve(context.Background())
}
