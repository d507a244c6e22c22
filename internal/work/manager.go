// Package work provides the two trigger mechanisms of the daemon: a durable
// periodic work manager and the self-chaining foreground loop.
package work

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ctxutil"
	"github.com/example/attend/internal/ports/secondary"
)

// Handler runs one unit of work. Handlers are given a context that is not
// cancelled on shutdown: once started, a run completes.
type Handler func(ctx context.Context)

// Manager runs named periodic work. Registrations live in a WorkRepository so
// they survive restarts; at most one run per name is in flight.
type Manager struct {
	repo         secondary.WorkRepository
	pollInterval time.Duration
	now          func() time.Time

	mu       sync.Mutex
	handlers map[string]Handler
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewManager creates a manager polling repo every pollInterval.
func NewManager(repo secondary.WorkRepository, pollInterval time.Duration) *Manager {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Manager{
		repo:         repo,
		pollInterval: pollInterval,
		now:          time.Now,
		handlers:     make(map[string]Handler),
		inflight:     make(map[string]bool),
	}
}

// Handle binds the handler run for registrations named name.
func (m *Manager) Handle(name string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = h
}

// EnqueueUniquePeriodic registers name to run every interval, first after one
// interval. An existing registration with the same name is kept unchanged.
func (m *Manager) EnqueueUniquePeriodic(ctx context.Context, name string, interval time.Duration) error {
	created, err := m.repo.Register(ctx, &secondary.WorkRegistration{
		Name:      name,
		Interval:  interval,
		NextRunAt: m.now().Add(interval),
	})
	if err != nil {
		return errors.Errorf("failed to enqueue periodic work %s: %w", name, err)
	}

	logger := zerolog.Ctx(ctx).With().Str("work", name).Logger()
	if created {
		logger.Info().Dur("interval", interval).Msg("periodic work registered")
	} else {
		logger.Debug().Msg("periodic work already registered, keeping existing")
	}
	return nil
}

// CancelUnique removes the registration of name.
func (m *Manager) CancelUnique(ctx context.Context, name string) error {
	removed, err := m.repo.Cancel(ctx, name)
	if err != nil {
		return errors.Errorf("failed to cancel periodic work %s: %w", name, err)
	}
	if removed {
		zerolog.Ctx(ctx).Info().Str("work", name).Msg("periodic work cancelled")
	}
	return nil
}

// NextRun returns the next due time of name, if registered.
func (m *Manager) NextRun(ctx context.Context, name string) (time.Time, bool, error) {
	reg, err := m.repo.Get(ctx, name)
	if err != nil {
		return time.Time{}, false, err
	}
	if reg == nil {
		return time.Time{}, false, nil
	}
	return reg.NextRunAt, true, nil
}

// Start launches the poll loop in a background goroutine and returns a stop
// function that waits for in-flight runs.
func (m *Manager) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()

		m.runDue(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runDue(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		m.wg.Wait()
	}
}

// runDue starts every due registration that has a handler and is not running.
// Missed intervals are not replayed: the next run is one interval from now.
func (m *Manager) runDue(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	now := m.now()

	due, err := m.repo.ListDue(ctx, now)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list due work")
		return
	}

	for _, reg := range due {
		m.mu.Lock()
		h, ok := m.handlers[reg.Name]
		busy := m.inflight[reg.Name]
		m.mu.Unlock()

		if !ok {
			logger.Warn().Str("work", reg.Name).Msg("no handler for periodic work")
			continue
		}
		if busy {
			logger.Debug().Str("work", reg.Name).Msg("previous run still in flight, skipping")
			continue
		}

		if err := m.repo.MarkRun(ctx, reg.Name, now, now.Add(reg.Interval)); err != nil {
			logger.Warn().Err(err).Str("work", reg.Name).Msg("failed to mark run")
			continue
		}

		m.mu.Lock()
		m.inflight[reg.Name] = true
		m.mu.Unlock()

		m.wg.Add(1)
		go m.run(ctx, reg.Name, h)
	}
}

func (m *Manager) run(ctx context.Context, name string, h Handler) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.inflight, name)
		m.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().Interface("panic", r).Str("work", name).Msg("periodic work panicked")
		}
	}()

	h(ctxutil.WithTrigger(context.WithoutCancel(ctx), ctxutil.TriggerPeriodic))
}

var _ secondary.PeriodicScheduler = (*Manager)(nil)
