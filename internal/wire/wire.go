// Package wire provides dependency injection for the attend application.
// It builds every adapter and service from the loaded configuration.
package wire

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/adapters/delivery"
	"github.com/example/attend/internal/adapters/liveness"
	"github.com/example/attend/internal/adapters/probe"
	"github.com/example/attend/internal/adapters/session"
	"github.com/example/attend/internal/adapters/sqlite"
	"github.com/example/attend/internal/api"
	"github.com/example/attend/internal/app"
	"github.com/example/attend/internal/config"
	"github.com/example/attend/internal/db"
	"github.com/example/attend/internal/logging"
	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
	"github.com/example/attend/internal/work"
)

// Container holds the wired application.
type Container struct {
	Config *config.Config
	Logger zerolog.Logger

	DB       *sql.DB
	Outbox   *sqlite.OutboxRepository
	Settings *sqlite.SettingsRepository

	Network  *probe.NetworkProbe
	Device   *probe.DeviceProbe
	Location secondary.LocationProvider
	Delivery *delivery.HTTPClient
	Metrics  *liveness.Metrics

	Periodic *work.Manager
	Chain    *work.Chain

	Tracking   primary.TrackingService
	StatusLogs primary.StatusLogService
	Session    primary.SessionService

	Server *api.Server

	closers []io.Closer
}

// New opens the store and wires all services. Liveness lines go to console.
func New(cfg *config.Config, console io.Writer) (*Container, error) {
	if console == nil {
		console = os.Stderr
	}
	logger, logCloser := logging.New(cfg.Log, console)

	database, err := db.Open(cfg.Store.Path)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       database,
		Outbox:   sqlite.NewOutboxRepository(database),
		Settings: sqlite.NewSettingsRepository(database),
		Network:  probe.NewNetworkProbe(cfg.Device.NetworkInterface),
		Device:   probe.NewDeviceProbe(cfg.Device.ID, cfg.Device.IDFile),
		Metrics:  liveness.NewMetrics(),
		Periodic: work.NewManager(sqlite.NewWorkRepository(database), cfg.Schedule.PollInterval),
		Chain:    work.NewChain(),
		closers:  []io.Closer{logCloser},
	}

	source, err := locationSource(cfg.Location)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Location = probe.NewOneShotLocator(source, cfg.Location.MaxAge, cfg.Location.Timeout)
	c.Delivery = delivery.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, c.Settings)

	surface := liveness.Fanout{liveness.NewConsole(console), c.Metrics}

	statusLogs := app.NewStatusLogService(app.StatusLogDeps{
		Outbox:     c.Outbox,
		Settings:   c.Settings,
		Claims:     session.NewJWTClaims(),
		Network:    c.Network,
		Device:     c.Device,
		Location:   c.Location,
		Delivery:   c.Delivery,
		Chain:      c.Chain,
		Liveness:   surface,
		Observer:   c.Metrics,
		ChainDelay: cfg.Schedule.ChainDelay,
	})
	executor := app.NewEffectExecutor(c.Settings, c.Periodic, c.Chain, surface)

	c.StatusLogs = statusLogs
	c.Tracking = app.NewTrackingService(
		c.Settings, c.Periodic, c.Chain, statusLogs, executor,
		app.DefaultPeriodicName, cfg.Schedule.PeriodicInterval,
	)
	c.Session = app.NewSessionService(c.Settings)

	c.Periodic.Handle(app.DefaultPeriodicName, statusLogs.HandlePeriodicTick)
	c.Chain.Handle(statusLogs.HandleChainTick)

	c.Server = api.NewServer(api.NewHandler(c.Tracking, c.StatusLogs, logger), c.Metrics.Registry())

	return c, nil
}

// Context returns ctx carrying the container's logger.
func (c *Container) Context(ctx context.Context) context.Context {
	return c.Logger.WithContext(ctx)
}

// Close releases the store and the log file.
func (c *Container) Close() error {
	var errs []error
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func locationSource(cfg config.LocationConfig) (probe.FixSource, error) {
	switch cfg.Source {
	case config.LocationStatic:
		return probe.StaticSource{Latitude: cfg.Latitude, Longitude: cfg.Longitude}, nil
	case config.LocationHTTP:
		return probe.NewHTTPSource(cfg.URL, cfg.MaxAge), nil
	case config.LocationNone, "":
		return probe.DeniedSource{Reason: "no location source configured"}, nil
	default:
		return nil, errors.Errorf("unknown location source %q", cfg.Source)
	}
}
