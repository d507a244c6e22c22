// Package tracking contains the pure planning logic for enabling and disabling
// background status logging.
package tracking

import (
	"time"

	"github.com/example/attend/internal/core/effects"
)

// SetEnabledContext is the input to PlanSetEnabled.
type SetEnabledContext struct {
	Enabled          bool
	PeriodicName     string
	PeriodicInterval time.Duration
}

// PlanSetEnabled returns the effects for setEnabled(on).
//
// Enabling persists the toggle, arms the periodic trigger and fires one
// immediate run of the chain. Disabling persists the toggle and cancels the
// periodic trigger only; a pending chain run stops itself when it next reads
// the toggle.
func PlanSetEnabled(ctx SetEnabledContext) []effects.Effect {
	if !ctx.Enabled {
		return []effects.Effect{
			effects.PersistToggleEffect{Enabled: false},
			effects.CancelPeriodicEffect{Name: ctx.PeriodicName},
			effects.LogEffect{
				Level:   "info",
				Message: "background status logging disabled",
				Fields:  map[string]any{"periodic": ctx.PeriodicName},
			},
		}
	}

	return []effects.Effect{
		effects.PersistToggleEffect{Enabled: true},
		effects.ArmPeriodicEffect{Name: ctx.PeriodicName, Interval: ctx.PeriodicInterval},
		effects.ArmChainEffect{Delay: 0},
		effects.LivenessEffect{State: "active"},
		effects.LogEffect{
			Level:   "info",
			Message: "background status logging enabled",
			Fields:  map[string]any{"periodic": ctx.PeriodicName, "interval": ctx.PeriodicInterval.String()},
		},
	}
}

// RestoreContext is the input to PlanRestore.
type RestoreContext struct {
	Enabled          bool
	PeriodicName     string
	PeriodicInterval time.Duration
}

// PlanRestore returns the effects for re-arming the triggers after a process
// start. The toggle is not written: it is the input, not the outcome.
func PlanRestore(ctx RestoreContext) []effects.Effect {
	if !ctx.Enabled {
		return []effects.Effect{
			effects.LivenessEffect{State: "stopped"},
		}
	}

	return []effects.Effect{
		effects.ArmPeriodicEffect{Name: ctx.PeriodicName, Interval: ctx.PeriodicInterval},
		effects.ArmChainEffect{Delay: 0},
		effects.LivenessEffect{State: "active"},
		effects.LogEffect{
			Level:   "info",
			Message: "background status logging restored",
			Fields:  map[string]any{"periodic": ctx.PeriodicName},
		},
	}
}
