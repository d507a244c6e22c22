package primary

import (
	"context"
	"time"

	"gitlab.com/tozd/go/errors"
)

// ErrRegistration is wrapped by errors from SetEnabled when the platform
// refuses the periodic trigger registration.
var ErrRegistration = errors.Base("periodic trigger registration failed")

// TrackingService defines the primary port for the trigger coordinator.
type TrackingService interface {
	// SetEnabled persists the toggle and arms or disarms the triggers.
	// Returns an error wrapping ErrRegistration when the periodic trigger
	// cannot be registered.
	SetEnabled(ctx context.Context, on bool) error

	// IsEnabled reads the persisted toggle.
	IsEnabled(ctx context.Context) (bool, error)

	// Restore re-arms the triggers after a process start when the toggle is on.
	Restore(ctx context.Context) error

	// Status reports the toggle, trigger and outbox state.
	Status(ctx context.Context) (*TrackingStatus, error)
}

// TrackingStatus is a snapshot of the background logging state.
type TrackingStatus struct {
	Enabled         bool          `json:"enabled"`
	PeriodicArmed   bool          `json:"periodic_armed"`
	NextPeriodicRun *time.Time    `json:"next_periodic_run,omitempty"`
	ChainArmed      bool          `json:"chain_armed"`
	NextChainRun    *time.Time    `json:"next_chain_run,omitempty"`
	LastSyncedAt    string        `json:"last_synced_at,omitempty"`
	SubjectPhone    string        `json:"subject_phone,omitempty"`
	SelectedDate    string        `json:"selected_date,omitempty"`
	Outbox          OutboxSummary `json:"outbox"`
}
