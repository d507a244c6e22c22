// Package statuslog contains the pure business logic for status-log attempts.
// This is part of the Functional Core - no I/O, only pure functions.
package statuslog

import "fmt"

// SyncState is the delivery status of one outbox record.
type SyncState string

const (
	SyncPending SyncState = "PENDING"
	SyncSent    SyncState = "SENT"
	SyncFailed  SyncState = "FAILED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s SyncState) IsTerminal() bool {
	return s == SyncSent || s == SyncFailed
}

// Valid reports whether s is one of the known sync states.
func (s SyncState) Valid() bool {
	switch s {
	case SyncPending, SyncSent, SyncFailed:
		return true
	}
	return false
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// TransitionContext provides context for sync-state transition guards.
type TransitionContext struct {
	RecordID     int64
	Exists       bool
	CurrentState SyncState
	TargetState  SyncState
}

// CanTransition evaluates whether a record may move to the target state.
// Rules:
// - Target must be terminal (SENT or FAILED)
// - Record must exist
// - Record must still be PENDING; terminal states are never overwritten
//
// A disallowed transition is not an error for callers of markSent/markFailed:
// they treat it as a no-op.
func CanTransition(ctx TransitionContext) GuardResult {
	if !ctx.TargetState.IsTerminal() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot transition to %s", ctx.TargetState),
		}
	}

	if !ctx.Exists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("status log %d not found", ctx.RecordID),
		}
	}

	if ctx.CurrentState != SyncPending {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("status log %d already %s", ctx.RecordID, ctx.CurrentState),
		}
	}

	return GuardResult{Allowed: true}
}
