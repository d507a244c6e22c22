package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// AttemptCmd returns the attempt command.
func AttemptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attempt",
		Short: "Record and deliver one status log now",
		Long: `Ask the running daemon for one out-of-band status-log attempt and
print its outcome. The attempt does not arm or disarm any trigger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient()
			if err != nil {
				return err
			}

			res, err := client.Attempt(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Phase == "STOPPED":
				fmt.Fprintln(out, color.YellowString("○")+" Logging is disabled, nothing recorded")
			case res.Error != "":
				fmt.Fprintf(out, "%s Record could not be stored: %s\n", color.RedString("✗"), res.Error)
			case res.SyncState == "SENT":
				fmt.Fprintf(out, "%s Record %d delivered\n", color.GreenString("✓"), res.RecordID)
			default:
				fmt.Fprintf(out, "%s Record %d stored, delivery %s\n", color.YellowString("⚠"), res.RecordID, res.SyncState)
			}
			if res.LocationError != "" {
				fmt.Fprintf(out, "  location: %s\n", res.LocationError)
			}
			return nil
		},
	}
}
