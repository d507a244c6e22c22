package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/api"
	"github.com/example/attend/internal/ports/primary"
)

// EnableCmd returns the enable command.
func EnableCmd() *cobra.Command {
	return setEnabledCmd(true)
}

// DisableCmd returns the disable command.
func DisableCmd() *cobra.Command {
	return setEnabledCmd(false)
}

func setEnabledCmd(on bool) *cobra.Command {
	use, short := "disable", "Stop background attendance logging"
	if on {
		use, short = "enable", "Start background attendance logging"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient()
			if err != nil {
				return err
			}

			status, err := client.SetEnabled(cmd.Context(), on)
			if err != nil {
				if api.IsRegistrationFailure(err) {
					return errors.Errorf("logging enabled but the periodic trigger could not be registered: %w", err)
				}
				return errors.Errorf("failed to %s logging: %w", use, err)
			}

			if on {
				fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓")+" Background logging enabled")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("○")+" Background logging disabled")
			}
			printStatus(cmd.OutOrStdout(), status, true)
			return nil
		},
	}
}

// StatusCmd returns the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the background logging state",
		Long: `Show the toggle, the trigger state, the last successful sync and the
outbox counts.

Trigger state is only known while the daemon runs; otherwise the persisted
state is read from the local store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient()
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context())
			if err == nil {
				printStatus(cmd.OutOrStdout(), status, true)
				return nil
			}
			if !errors.Is(err, api.ErrDaemonUnavailable) {
				return err
			}

			c, ctx, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			status, err = c.Tracking.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status, false)
			return nil
		},
	}
}

func printStatus(w io.Writer, s *primary.TrackingStatus, daemon bool) {
	toggle := color.RedString("disabled")
	if s.Enabled {
		toggle = color.GreenString("enabled")
	}
	fmt.Fprintf(w, "Logging:    %s\n", toggle)

	if daemon {
		fmt.Fprintf(w, "Periodic:   %s\n", describeTrigger(s.PeriodicArmed, s.NextPeriodicRun))
		fmt.Fprintf(w, "Chain:      %s\n", describeTrigger(s.ChainArmed, s.NextChainRun))
	} else {
		fmt.Fprintf(w, "Daemon:     %s\n", color.YellowString("not running"))
		fmt.Fprintf(w, "Periodic:   %s\n", describeTrigger(s.PeriodicArmed, s.NextPeriodicRun))
	}

	lastSync := "never"
	if s.LastSyncedAt != "" {
		if t, err := time.Parse(time.RFC3339, s.LastSyncedAt); err == nil {
			lastSync = t.Local().Format("2006-01-02 15:04:05")
		}
	}
	fmt.Fprintf(w, "Last sync:  %s\n", lastSync)

	if s.SubjectPhone != "" {
		fmt.Fprintf(w, "Phone:      %s\n", s.SubjectPhone)
	}
	if s.SelectedDate != "" {
		fmt.Fprintf(w, "Date:       %s\n", s.SelectedDate)
	}

	failed := fmt.Sprintf("%d failed", s.Outbox.Failed)
	if s.Outbox.Failed > 0 {
		failed = color.RedString(failed)
	}
	fmt.Fprintf(w, "Outbox:     %d pending, %d sent, %s\n", s.Outbox.Pending, s.Outbox.Sent, failed)
}

func describeTrigger(armed bool, next *time.Time) string {
	if !armed {
		return "not armed"
	}
	if next == nil {
		return "armed"
	}
	return "next run " + next.Local().Format("15:04:05")
}
