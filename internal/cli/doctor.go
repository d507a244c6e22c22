package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/adapters/probe"
	"github.com/example/attend/internal/api"
	"github.com/example/attend/internal/ports/secondary"
	"github.com/example/attend/internal/wire"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the attend environment",
		Long: `Check everything a status log depends on.

Validates:
- Configuration file
- Local store
- Network, device and location probes
- Backend reachability
- Daemon control API

Examples:
  attend doctor              # Run full health check
  attend doctor --quiet      # Exit code only (0=healthy, 1=issues)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return reportChecks(cmd.OutOrStdout(), quiet, []CheckResult{
					{Name: "Config", Status: "✗", Details: "  " + err.Error()},
				})
			}

			c, err := wire.New(cfg, io.Discard)
			if err != nil {
				return reportChecks(cmd.OutOrStdout(), quiet, []CheckResult{
					{Name: "Config", Status: "✓"},
					{Name: "Store", Status: "✗", Details: "  " + err.Error()},
				})
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(c.Context(cmd.Context()), cfg.Location.Timeout+10*time.Second)
			defer cancel()

			results := []CheckResult{
				{Name: "Config", Status: "✓"},
				checkStore(ctx, c),
				checkNetwork(ctx, c),
				checkDevice(ctx, c),
				checkLocation(ctx, c),
				checkBackend(ctx, c),
				checkDaemon(ctx, c),
			}
			return reportChecks(cmd.OutOrStdout(), quiet, results)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - exit code only")

	return cmd
}

func reportChecks(w io.Writer, quiet bool, results []CheckResult) error {
	hasErrors := false
	for _, r := range results {
		if r.Status == "✗" {
			hasErrors = true
			break
		}
	}

	if !quiet {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Check              Status")
		fmt.Fprintln(w, "─────────────────────────")
		for _, r := range results {
			fmt.Fprintf(w, "%-18s %s\n", r.Name, colorStatus(r.Status))
		}
		fmt.Fprintln(w)

		hasDetails := false
		for _, r := range results {
			if r.Status != "✓" && r.Details != "" {
				if !hasDetails {
					fmt.Fprintln(w, "Details:")
					hasDetails = true
				}
				fmt.Fprintf(w, "\n%s:\n%s\n", r.Name, r.Details)
			}
		}

		if hasErrors {
			fmt.Fprintln(w, "\n⚠ Issues found.")
		} else {
			fmt.Fprintln(w, "All checks passed.")
		}
	}

	if hasErrors {
		return errors.New("environment validation failed")
	}
	return nil
}

func colorStatus(status string) string {
	switch status {
	case "✓":
		return color.GreenString(status)
	case "⚠":
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

func checkStore(ctx context.Context, c *wire.Container) CheckResult {
	if _, err := c.StatusLogs.Summary(ctx); err != nil {
		return CheckResult{Name: "Store", Status: "✗", Details: "  " + err.Error()}
	}
	return CheckResult{Name: "Store", Status: "✓"}
}

func checkNetwork(ctx context.Context, c *wire.Container) CheckResult {
	if ssid := c.Network.CurrentNetworkIdentifier(ctx); ssid == "" {
		return CheckResult{Name: "Network", Status: "⚠", Details: "  No Wi-Fi network detected; logs will carry an empty SSID"}
	}
	return CheckResult{Name: "Network", Status: "✓"}
}

func checkDevice(ctx context.Context, c *wire.Container) CheckResult {
	if id := c.Device.CurrentDeviceIdentifier(ctx); id == probe.FallbackDeviceID {
		return CheckResult{Name: "Device", Status: "⚠", Details: "  Device identifier unavailable; using " + probe.FallbackDeviceID}
	}
	return CheckResult{Name: "Device", Status: "✓"}
}

func checkLocation(ctx context.Context, c *wire.Container) CheckResult {
	_, err := c.Location.CurrentLocationFix(ctx)
	if err == nil {
		return CheckResult{Name: "Location", Status: "✓"}
	}
	var perr *secondary.PermissionError
	if errors.As(err, &perr) {
		return CheckResult{Name: "Location", Status: "⚠", Details: "  " + perr.Error() + "\n  Logs are recorded without coordinates"}
	}
	return CheckResult{Name: "Location", Status: "⚠", Details: "  " + err.Error()}
}

func checkBackend(ctx context.Context, c *wire.Container) CheckResult {
	if err := c.Delivery.Reachable(ctx); err != nil {
		return CheckResult{Name: "Backend", Status: "✗", Details: "  " + err.Error() + "\n  Records stay FAILED until the backend is reachable"}
	}
	return CheckResult{Name: "Backend", Status: "✓"}
}

func checkDaemon(ctx context.Context, c *wire.Container) CheckResult {
	if err := api.NewClient(c.Config.Control.Listen).Health(ctx); err != nil {
		return CheckResult{Name: "Daemon", Status: "⚠", Details: "  Not running; start it with: attend run"}
	}
	return CheckResult{Name: "Daemon", Status: "✓"}
}
