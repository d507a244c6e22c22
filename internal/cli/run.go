package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/version"
	"github.com/example/attend/internal/wire"
)

// RunCmd returns the daemon command.
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the attendance logging daemon",
		Long: `Run the background attendance logging daemon in the foreground.

The daemon owns the periodic trigger, the self-chaining loop and the local
control API. When logging was enabled before the last shutdown, both triggers
are armed again on start.

Examples:
  attend run
  attend --config ./attend.yaml run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := wire.New(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ctx = c.Context(ctx)

			return runDaemon(ctx, c)
		},
	}
}

func runDaemon(ctx context.Context, c *wire.Container) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("version", version.String()).
		Str("listen", c.Config.Control.Listen).
		Str("store", c.Config.Store.Path).
		Msg("starting attend daemon")

	stopPeriodic := c.Periodic.Start(ctx)
	defer stopPeriodic()
	stopChain := c.Chain.Start(ctx)
	defer stopChain()

	if err := c.Tracking.Restore(ctx); err != nil {
		if !errors.Is(err, primary.ErrRegistration) {
			return err
		}
		logger.Warn().Err(err).Msg("periodic trigger not restored; chain stays disarmed until logging is enabled again")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Server.Serve(gctx, c.Config.Control.Listen)
	})
	g.Go(func() error {
		refreshOutboxGauge(gctx, c)
		ticker := time.NewTicker(c.Config.Schedule.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				refreshOutboxGauge(gctx, c)
			}
		}
	})

	err := g.Wait()
	logger.Info().Msg("attend daemon stopped")
	return err
}

func refreshOutboxGauge(ctx context.Context, c *wire.Container) {
	summary, err := c.StatusLogs.Summary(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to count outbox records")
		return
	}
	c.Metrics.SetOutbox(*summary)
}
