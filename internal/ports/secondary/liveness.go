package secondary

import (
	"context"
	"time"
)

// LivenessState is one of the presentations of the liveness surface.
type LivenessState string

const (
	LivenessActive  LivenessState = "active"  // running, logging active
	LivenessSynced  LivenessState = "synced"  // running, last synced at <time>
	LivenessStopped LivenessState = "stopped" // stopped
)

// LivenessSignal is pushed to the liveness surface.
type LivenessSignal struct {
	State    LivenessState
	SyncedAt time.Time // set for LivenessSynced
}

// LivenessSurface is a side-effect sink showing that background work is alive.
type LivenessSurface interface {
	Show(ctx context.Context, signal LivenessSignal)
}

// AttemptObserver records the outcome of each status-log attempt.
type AttemptObserver interface {
	ObserveAttempt(trigger, phase string, duration time.Duration)
}
