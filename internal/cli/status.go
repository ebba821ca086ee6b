package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/battguard/internal/api"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show power state, guard settings and any pending shutdown",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	var st api.StatusResponse
	if err := newClient().do(cmd.Context(), "GET", "/api/status", nil, &st); err != nil {
		return err
	}
	return printStatus(cmd.OutOrStdout(), st)
}

func printStatus(out io.Writer, st api.StatusResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	cfg := st.Config
	if cfg.Enabled {
		fmt.Fprintf(w, "Auto-shutdown:\tenabled (after %d min on battery, at or below %d%%)\n", cfg.DelayMinutes, cfg.BatteryPercent)
	} else {
		fmt.Fprintf(w, "Auto-shutdown:\tdisabled\n")
	}
	fmt.Fprintf(w, "Alert sound:\t%s\n", onOff(cfg.SoundEnabled))

	s := st.Monitor.Sample
	switch {
	case st.Monitor.ReadFailing:
		fmt.Fprintf(w, "Power:\tunreadable\n")
	case !s.Present:
		fmt.Fprintf(w, "Power:\tno battery detected\n")
	case s.OnAC:
		fmt.Fprintf(w, "Power:\tAC adapter, %d%%\n", s.Percent)
	default:
		fmt.Fprintf(w, "Power:\tbattery, %d%%\n", s.Percent)
	}

	monitor := st.Monitor.Phase
	if st.Monitor.UntilSecs > 0 {
		monitor += fmt.Sprintf(", threshold check in %s", time.Duration(st.Monitor.UntilSecs)*time.Second)
	}
	fmt.Fprintf(w, "Monitor:\t%s\n", monitor)

	if c := st.Confirmation; c != nil {
		fmt.Fprintf(w, "Shutdown:\tin %ds (run \"battguard cancel\" to stop it)\n", c.Remaining)
	}
	return w.Flush()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
