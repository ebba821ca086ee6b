// Package cli implements the battguard command-line interface using Cobra.
// "run" hosts the daemon; every other command talks to it over the local
// control API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "battguard",
	Short: "Shut down before the battery runs flat",
	Long: `battguard watches the power source and, once the machine has been
unplugged for a configured time AND the charge is at or below a configured
level, shuts it down after a 30-second warning that can be cancelled.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var daemonAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", "", "Control API address (default from config, 127.0.0.1:7878)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
