package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cancelCmd)
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a pending shutdown (also disables auto-shutdown)",
	Args:  cobra.NoArgs,
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	err := newClient().do(cmd.Context(), "POST", "/api/confirmation/cancel", nil, nil)
	if isStatus(err, http.StatusConflict) {
		fmt.Fprintln(cmd.OutOrStdout(), "No shutdown pending.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Shutdown cancelled. Auto-shutdown is now disabled; run \"battguard enable\" to turn it back on.")
	return nil
}
