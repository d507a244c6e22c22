package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/core/tracking"
	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
)

// DefaultPeriodicName is the well-known identity of the periodic trigger.
const DefaultPeriodicName = "attendance-status-log"

// DefaultPeriodicInterval is the period of the fallback trigger.
const DefaultPeriodicInterval = time.Hour

// TrackingServiceImpl implements the TrackingService interface.
type TrackingServiceImpl struct {
	settings         secondary.SettingsStore
	periodic         secondary.PeriodicScheduler
	chain            secondary.ChainScheduler
	statusLogs       primary.StatusLogService
	executor         EffectExecutor
	periodicName     string
	periodicInterval time.Duration
}

// NewTrackingService creates a new TrackingService with injected dependencies.
func NewTrackingService(
	settings secondary.SettingsStore,
	periodic secondary.PeriodicScheduler,
	chain secondary.ChainScheduler,
	statusLogs primary.StatusLogService,
	executor EffectExecutor,
	periodicName string,
	periodicInterval time.Duration,
) *TrackingServiceImpl {
	if periodicName == "" {
		periodicName = DefaultPeriodicName
	}
	if periodicInterval <= 0 {
		periodicInterval = DefaultPeriodicInterval
	}
	return &TrackingServiceImpl{
		settings:         settings,
		periodic:         periodic,
		chain:            chain,
		statusLogs:       statusLogs,
		executor:         executor,
		periodicName:     periodicName,
		periodicInterval: periodicInterval,
	}
}

// SetEnabled persists the toggle and arms or disarms the triggers.
// A periodic registration failure is returned wrapping primary.ErrRegistration
// and is not retried; the toggle stays persisted.
func (s *TrackingServiceImpl) SetEnabled(ctx context.Context, on bool) error {
	effs := tracking.PlanSetEnabled(tracking.SetEnabledContext{
		Enabled:          on,
		PeriodicName:     s.periodicName,
		PeriodicInterval: s.periodicInterval,
	})
	if err := s.executor.Execute(ctx, effs); err != nil {
		return errors.Errorf("failed to set tracking enabled=%t: %w", on, err)
	}
	return nil
}

// IsEnabled reads the persisted toggle.
func (s *TrackingServiceImpl) IsEnabled(ctx context.Context) (bool, error) {
	enabled, err := s.settings.GetBool(ctx, secondary.SettingTrackingEnabled)
	if err != nil {
		return false, errors.Errorf("failed to read tracking toggle: %w", err)
	}
	return enabled, nil
}

// Restore re-arms the triggers after a process start when the toggle is on.
func (s *TrackingServiceImpl) Restore(ctx context.Context) error {
	enabled, err := s.IsEnabled(ctx)
	if err != nil {
		return err
	}

	effs := tracking.PlanRestore(tracking.RestoreContext{
		Enabled:          enabled,
		PeriodicName:     s.periodicName,
		PeriodicInterval: s.periodicInterval,
	})
	if err := s.executor.Execute(ctx, effs); err != nil {
		return errors.Errorf("failed to restore tracking: %w", err)
	}
	return nil
}

// Status reports the toggle, trigger and outbox state.
func (s *TrackingServiceImpl) Status(ctx context.Context) (*primary.TrackingStatus, error) {
	enabled, err := s.IsEnabled(ctx)
	if err != nil {
		return nil, err
	}

	status := &primary.TrackingStatus{Enabled: enabled}

	if s.periodic != nil {
		next, armed, err := s.periodic.NextRun(ctx, s.periodicName)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to read periodic trigger state")
		} else if armed {
			status.PeriodicArmed = true
			status.NextPeriodicRun = &next
		}
	}

	if s.chain != nil {
		if due, pending := s.chain.Pending(); pending {
			status.ChainArmed = true
			status.NextChainRun = &due
		}
	}

	status.LastSyncedAt, _ = s.settings.GetString(ctx, secondary.SettingLastSyncedAt)
	status.SubjectPhone, _ = s.settings.GetString(ctx, secondary.SettingSubjectPhone)
	status.SelectedDate, _ = s.settings.GetString(ctx, secondary.SettingSelectedDate)

	if s.statusLogs != nil {
		summary, err := s.statusLogs.Summary(ctx)
		if err != nil {
			return nil, err
		}
		status.Outbox = *summary
	}

	return status, nil
}

// Ensure TrackingServiceImpl implements the interface
var _ primary.TrackingService = (*TrackingServiceImpl)(nil)
