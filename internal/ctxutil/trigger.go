// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// Trigger names the execution context that started a status-log attempt.
type Trigger string

const (
	TriggerPeriodic Trigger = "periodic"
	TriggerChain    Trigger = "chain"
	TriggerManual   Trigger = "manual"
)

// TriggerKey is the context key for the trigger.
type TriggerKey struct{}

// WithTrigger returns a context with the trigger embedded.
func WithTrigger(ctx context.Context, trigger Trigger) context.Context {
	return context.WithValue(ctx, TriggerKey{}, trigger)
}

// TriggerFromContext returns the trigger from context, or TriggerManual if not set.
func TriggerFromContext(ctx context.Context) Trigger {
	if v, ok := ctx.Value(TriggerKey{}).(Trigger); ok && v != "" {
		return v
	}
	return TriggerManual
}
