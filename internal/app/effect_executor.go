// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/core/effects"
	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// DefaultEffectExecutor implements EffectExecutor with real I/O.
type DefaultEffectExecutor struct {
	settings secondary.SettingsStore
	periodic secondary.PeriodicScheduler
	chain    secondary.ChainScheduler
	liveness secondary.LivenessSurface
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(
	settings secondary.SettingsStore,
	periodic secondary.PeriodicScheduler,
	chain secondary.ChainScheduler,
	liveness secondary.LivenessSurface,
) *DefaultEffectExecutor {
	return &DefaultEffectExecutor{
		settings: settings,
		periodic: periodic,
		chain:    chain,
		liveness: liveness,
	}
}

// Execute processes a slice of effects in sequence, stopping at the first failure.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	for _, eff := range effs {
		if err := e.executeOne(ctx, eff); err != nil {
			return errors.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) error {
	switch typed := eff.(type) {
	case effects.PersistToggleEffect:
		return e.settings.SetBool(ctx, secondary.SettingTrackingEnabled, typed.Enabled)
	case effects.ArmPeriodicEffect:
		if err := e.periodic.EnqueueUniquePeriodic(ctx, typed.Name, typed.Interval); err != nil {
			return errors.Errorf("%w: %w", primary.ErrRegistration, err)
		}
		return nil
	case effects.CancelPeriodicEffect:
		return e.periodic.CancelUnique(ctx, typed.Name)
	case effects.ArmChainEffect:
		return e.chain.Enqueue(ctx, typed.Delay)
	case effects.LivenessEffect:
		if e.liveness != nil {
			e.liveness.Show(ctx, secondary.LivenessSignal{State: secondary.LivenessState(typed.State)})
		}
		return nil
	case effects.CompositeEffect:
		return e.Execute(ctx, typed.Effects)
	case effects.NoEffect:
		return nil
	case effects.LogEffect:
		e.executeLog(ctx, typed)
		return nil
	default:
		return errors.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executeLog(ctx context.Context, eff effects.LogEffect) {
	level, err := zerolog.ParseLevel(eff.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.Ctx(ctx).WithLevel(level).Fields(eff.Fields).Msg(eff.Message)
}

// Ensure DefaultEffectExecutor implements the interface
var _ EffectExecutor = (*DefaultEffectExecutor)(nil)
