package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/attend/internal/ports/primary"
)

// SessionCmd returns the session command with its subcommands attached.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the cached login session",
		Long: `Manage the session values attached to status logs: the subject phone,
the bearer token used for delivery and the selected reporting date.`,
	}

	cmd.AddCommand(sessionSetCmd())
	cmd.AddCommand(sessionShowCmd())

	return cmd
}

func sessionSetCmd() *cobra.Command {
	var req primary.SetSessionRequest

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store session values",
		Long: `Store session values. Flags left empty keep their current value.

Examples:
  attend session set --phone 09120000000 --token "$TOKEN"
  attend session set --date 2026-03-04`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.SubjectPhone == "" && req.Token == "" && req.SelectedDate == "" {
				return fmt.Errorf("nothing to set: pass --phone, --token or --date")
			}

			c, ctx, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Session.SetSession(ctx, req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session updated.")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SubjectPhone, "phone", "", "Subject phone number")
	cmd.Flags().StringVar(&req.Token, "token", "", "Bearer token for the backend")
	cmd.Flags().StringVar(&req.SelectedDate, "date", "", "Selected reporting date (YYYY-MM-DD)")

	return cmd
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			s, err := c.Session.GetSession(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Phone:  %s\n", orDash(s.SubjectPhone))
			fmt.Fprintf(out, "Date:   %s\n", orDash(s.SelectedDate))
			if s.HasToken {
				fmt.Fprintln(out, "Token:  set")
			} else {
				fmt.Fprintln(out, "Token:  -")
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
