package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/battguard/internal/domain"
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historySessions, "sessions", false, "Show confirmation countdowns instead of power events")
	rootCmd.AddCommand(historyCmd)
}

var (
	historyLimit    int
	historySessions bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent power events or shutdown confirmations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	c := newClient()
	out := cmd.OutOrStdout()

	if historySessions {
		var resp struct {
			Sessions []domain.SessionRecord `json:"sessions"`
		}
		if err := c.do(cmd.Context(), "GET", fmt.Sprintf("/api/sessions?limit=%d", historyLimit), nil, &resp); err != nil {
			return err
		}
		return printSessions(out, resp.Sessions)
	}

	var resp struct {
		Events []domain.PowerEvent `json:"events"`
	}
	if err := c.do(cmd.Context(), "GET", fmt.Sprintf("/api/events?limit=%d", historyLimit), nil, &resp); err != nil {
		return err
	}
	return printEvents(out, resp.Events)
}

func printEvents(out io.Writer, events []domain.PowerEvent) error {
	if len(events) == 0 {
		fmt.Fprintln(out, "No power events recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tSOURCE\tCHARGE\tMONITOR")
	for _, e := range events {
		source := "battery"
		if e.OnAC {
			source = "ac"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
			e.At.Local().Format("2006-01-02 15:04:05"), e.Kind, source, e.Percent, e.Phase)
	}
	return w.Flush()
}

func printSessions(out io.Writer, sessions []domain.SessionRecord) error {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No shutdown confirmations recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPENED\tOUTCOME\tCHARGE\tERROR")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n",
			s.OpenedAt.Local().Format("2006-01-02 15:04:05"), s.Outcome, s.Percent, s.Error)
	}
	return w.Flush()
}
