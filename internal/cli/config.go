package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tutu-network/battguard/internal/api"
	"github.com/tutu-network/battguard/internal/daemon"
	"github.com/tutu-network/battguard/internal/domain"
)

func init() {
	setCmd.Flags().IntVar(&setDelay, "delay", 0, "Minutes on battery before the threshold is checked (1-60)")
	setCmd.Flags().IntVar(&setPercent, "percent", 0, "Charge level at or below which to shut down (1-100)")
	setCmd.Flags().BoolVar(&setSound, "sound", true, "Play an alert sound when the countdown starts")
	rootCmd.AddCommand(enableCmd, disableCmd, setCmd, configCmd)
}

var (
	setDelay   int
	setPercent int
	setSound   bool
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn automatic shutdown on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		on := true
		return applyPatch(cmd, api.ConfigPatch{Enabled: &on})
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn automatic shutdown off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		off := false
		return applyPatch(cmd, api.ConfigPatch{Enabled: &off})
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the delay, threshold or alert sound",
	Example: `  battguard set --delay 10 --percent 25
  battguard set --sound=false`,
	Args: cobra.NoArgs,
	RunE: runSet,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.LoadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", daemon.ConfigPath())
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

func runSet(cmd *cobra.Command, args []string) error {
	var p api.ConfigPatch
	if cmd.Flags().Changed("delay") {
		p.DelayMinutes = &setDelay
	}
	if cmd.Flags().Changed("percent") {
		p.BatteryPercent = &setPercent
	}
	if cmd.Flags().Changed("sound") {
		p.SoundEnabled = &setSound
	}
	if p == (api.ConfigPatch{}) {
		return errors.New("nothing to set; pass --delay, --percent or --sound")
	}
	return applyPatch(cmd, p)
}

// applyPatch sends p to the daemon. When no daemon is running the config
// file is edited directly and picked up on the next start.
func applyPatch(cmd *cobra.Command, p api.ConfigPatch) error {
	var cfg domain.Config
	err := newClient().do(cmd.Context(), "PUT", "/api/config", p, &cfg)
	if errors.Is(err, domain.ErrDaemonUnreachable) {
		cfg, err = patchFile(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon not running; saved to", daemon.ConfigPath())
	} else if err != nil {
		return err
	}
	printGuard(cmd.OutOrStdout(), cfg)
	return nil
}

func patchFile(p api.ConfigPatch) (domain.Config, error) {
	full, err := daemon.LoadConfig()
	if err != nil {
		return domain.Config{}, err
	}
	next := p.Apply(full.Guard)
	if err := next.Validate(); err != nil {
		return domain.Config{}, err
	}
	full.Guard = next
	if err := daemon.SaveConfig(full); err != nil {
		return domain.Config{}, fmt.Errorf("save config: %w", err)
	}
	return next, nil
}

func printGuard(out io.Writer, cfg domain.Config) {
	state := "disabled"
	if cfg.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(out, "Auto-shutdown %s: %d min on battery, at or below %d%%, sound %s\n",
		state, cfg.DelayMinutes, cfg.BatteryPercent, onOff(cfg.SoundEnabled))
}
