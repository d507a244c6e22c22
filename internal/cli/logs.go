package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/report"
)

// LogsCmd returns the logs command with its subcommands attached.
func LogsCmd() *cobra.Command {
	var (
		limit  int
		state  string
		follow bool
		export string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recorded status logs",
		Long: `Show status-log records from the local store, newest last.

Works without the daemon.

Examples:
  attend logs                      # last 50 records
  attend logs --state FAILED       # only failed deliveries
  attend logs -f                   # print new records as they arrive
  attend logs --export march.xlsx  # write an attendance report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch state {
			case "", "PENDING", "SENT", "FAILED":
			default:
				return errors.Errorf("invalid state %q: use PENDING, SENT or FAILED", state)
			}

			c, ctx, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			filters := primary.StatusLogFilters{SyncState: state, Limit: limit}
			out := cmd.OutOrStdout()

			if export != "" {
				filters.Limit = 0
				logs, err := c.StatusLogs.ListStatusLogs(ctx, filters)
				if err != nil {
					return err
				}
				if err := exportLogs(export, logs); err != nil {
					return err
				}
				fmt.Fprintf(out, "Exported %d status logs to %s\n", len(logs), export)
				return nil
			}

			if !follow {
				logs, err := c.StatusLogs.ListStatusLogs(ctx, filters)
				if err != nil {
					return errors.Errorf("failed to fetch status logs: %w", err)
				}
				printStatusLogs(out, logs)
				return nil
			}

			ctx, stop := signalContext(ctx)
			defer stop()

			seen := map[int64]string{}
			for logs := range c.StatusLogs.ObserveStatusLogs(ctx, filters, time.Second) {
				// Print new rows and rows whose sync-state changed, oldest first.
				for i := len(logs) - 1; i >= 0; i-- {
					l := logs[i]
					if seen[l.ID] == l.SyncState {
						continue
					}
					seen[l.ID] = l.SyncState
					printStatusLog(out, l)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of records to show")
	cmd.Flags().StringVar(&state, "state", "", "Filter by sync-state (PENDING, SENT, FAILED)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow mode: print new records as they arrive")
	cmd.Flags().StringVar(&export, "export", "", "Write all matching records to an xlsx report")

	cmd.AddCommand(logsPruneCmd())

	return cmd
}

func logsPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old delivered and failed records",
		Long: `Delete SENT and FAILED records older than the given age.
PENDING records are never pruned.

Examples:
  attend logs prune --older-than 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			c, ctx, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			count, err := c.StatusLogs.Prune(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No records older than %s found.\n", olderThan)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d records older than %s.\n", count, olderThan)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age of pruned records")

	return cmd
}

func exportLogs(path string, logs []*primary.StatusLog) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.WriteXLSX(f, logs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStatusLogs(w io.Writer, logs []*primary.StatusLog) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "No status logs found.")
		return
	}

	// Oldest first for tail view
	for i := len(logs) - 1; i >= 0; i-- {
		printStatusLog(w, logs[i])
	}
}

func printStatusLog(w io.Writer, l *primary.StatusLog) {
	network := l.NetworkID
	if network == "" {
		network = "-"
	}
	location := "-"
	if l.Latitude != "" || l.Longitude != "" {
		location = l.Latitude + "," + l.Longitude
	}

	fmt.Fprintf(w, "%5d | %s | %s | %-8s | %-16s | %-22s | %s",
		l.ID,
		l.Timestamp,
		syncStateLabel(l.SyncState),
		l.Trigger,
		network,
		location,
		l.SubjectPhone,
	)
	if l.LastError != "" {
		fmt.Fprintf(w, " | %s", l.LastError)
	}
	fmt.Fprintln(w)
}

func syncStateLabel(state string) string {
	padded := fmt.Sprintf("%-7s", state)
	switch state {
	case "SENT":
		return color.GreenString(padded)
	case "FAILED":
		return color.RedString(padded)
	default:
		return color.YellowString(padded)
	}
}
