package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/attend/internal/cli"
	"github.com/example/attend/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "attend",
		Short:   "attend - background attendance status logging",
		Version: version.String(),
		Long: `attend records the device's network, location and identity on a
schedule, stores each record locally and delivers it to the attendance
backend.`,
		SilenceUsage: true,
	}
	cli.ConfigFlag(rootCmd)

	// Daemon
	rootCmd.AddCommand(cli.RunCmd())

	// Control
	rootCmd.AddCommand(cli.EnableCmd())
	rootCmd.AddCommand(cli.DisableCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.AttemptCmd())

	// Local store
	rootCmd.AddCommand(cli.LogsCmd())
	rootCmd.AddCommand(cli.SessionCmd())

	// Setup
	rootCmd.AddCommand(cli.ConfigCmd())
	rootCmd.AddCommand(cli.DoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
