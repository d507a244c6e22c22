package secondary

import (
	"context"
	"time"
)

// WorkRepository defines the secondary port for durable periodic work registrations.
type WorkRepository interface {
	// Register adds a registration unless one with the same name exists.
	// Returns true when a new registration was created.
	Register(ctx context.Context, reg *WorkRegistration) (bool, error)

	// Cancel removes the registration with the given name.
	// Returns false when nothing was registered.
	Cancel(ctx context.Context, name string) (bool, error)

	// Get retrieves a registration by name, or nil if absent.
	Get(ctx context.Context, name string) (*WorkRegistration, error)

	// ListDue retrieves registrations whose next run is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]*WorkRegistration, error)

	// MarkRun records a run start and the next due time.
	MarkRun(ctx context.Context, name string, startedAt, nextRunAt time.Time) error
}

// WorkRegistration represents a periodic trigger as stored in persistence.
type WorkRegistration struct {
	Name      string
	Interval  time.Duration
	NextRunAt time.Time
	LastRunAt *time.Time
	CreatedAt time.Time
}

// PeriodicScheduler is the coarse periodic trigger, keyed by a unique name.
type PeriodicScheduler interface {
	// EnqueueUniquePeriodic arms name; a no-op when name is already armed.
	EnqueueUniquePeriodic(ctx context.Context, name string, interval time.Duration) error

	// CancelUnique disarms name.
	CancelUnique(ctx context.Context, name string) error

	// NextRun returns the next due time of name, if armed.
	NextRun(ctx context.Context, name string) (time.Time, bool, error)
}

// ChainScheduler is the fine-grained self-chaining one-shot trigger.
type ChainScheduler interface {
	// Enqueue arms the next run after delay, replacing a pending one.
	Enqueue(ctx context.Context, delay time.Duration) error

	// Pending returns the due time of the armed run, if any.
	Pending() (time.Time, bool)
}
