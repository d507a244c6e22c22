// Package effects defines effect types as data structures representing I/O operations.
// This is the foundation of the Functional Core / Imperative Shell pattern.
// Effects are pure data - they describe what should happen, not how.
package effects

import "time"

// Effect is the base interface for all effects.
// Effects represent I/O operations as data that can be interpreted by the shell.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// PersistToggleEffect writes the tracking toggle to the settings store.
type PersistToggleEffect struct {
	Enabled bool
}

func (e PersistToggleEffect) EffectType() string { return "persist_toggle" }

// ArmPeriodicEffect registers a named periodic trigger. Registering an
// existing name keeps the existing schedule.
type ArmPeriodicEffect struct {
	Name     string
	Interval time.Duration
}

func (e ArmPeriodicEffect) EffectType() string { return "arm_periodic" }

// CancelPeriodicEffect removes a named periodic trigger.
type CancelPeriodicEffect struct {
	Name string
}

func (e CancelPeriodicEffect) EffectType() string { return "cancel_periodic" }

// ArmChainEffect arms the next one-shot run of the self-chaining loop.
type ArmChainEffect struct {
	Delay time.Duration
}

func (e ArmChainEffect) EffectType() string { return "arm_chain" }

// LivenessEffect pushes a presentation to the liveness surface.
type LivenessEffect struct {
	State string // "active", "synced", "stopped"
}

func (e LivenessEffect) EffectType() string { return "liveness" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
