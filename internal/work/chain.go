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

// ErrNotRunning is returned by Chain.Enqueue outside Start/stop.
var ErrNotRunning = errors.Base("foreground loop is not running")

// Chain is the self-chaining one-shot loop. Each run is armed by an explicit
// Enqueue; at most one run is pending at a time and arming again replaces it.
type Chain struct {
	now func() time.Time

	mu      sync.Mutex
	handler Handler
	ctx     context.Context
	running bool
	timer   *time.Timer
	due     time.Time
	gen     uint64
	wg      sync.WaitGroup
}

// NewChain creates a stopped loop.
func NewChain() *Chain {
	return &Chain{now: time.Now}
}

// Handle sets the handler executed by each run.
func (c *Chain) Handle(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Start makes the loop accept Enqueue calls and returns a stop function that
// disarms the pending run and waits for an in-flight one.
func (c *Chain) Start(ctx context.Context) func() {
	c.mu.Lock()
	c.ctx = ctx
	c.running = true
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.running = false
		c.disarmLocked()
		c.mu.Unlock()
		c.wg.Wait()
	}
}

// Enqueue arms the next run after delay, replacing a pending one.
func (c *Chain) Enqueue(ctx context.Context, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}

	replaced := c.timer != nil
	c.disarmLocked()
	c.gen++
	gen := c.gen
	c.due = c.now().Add(delay)
	c.timer = time.AfterFunc(delay, func() { c.fire(gen) })

	zerolog.Ctx(ctx).Debug().Dur("delay", delay).Bool("replaced", replaced).Msg("foreground loop armed")
	return nil
}

// Pending returns the due time of the armed run, if any.
func (c *Chain) Pending() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return time.Time{}, false
	}
	return c.due, true
}

func (c *Chain) disarmLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.due = time.Time{}
}

func (c *Chain) fire(gen uint64) {
	c.mu.Lock()
	if !c.running || gen != c.gen || c.handler == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.due = time.Time{}
	h := c.handler
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().Interface("panic", r).Msg("foreground loop run panicked")
		}
	}()

	h(ctxutil.WithTrigger(context.WithoutCancel(ctx), ctxutil.TriggerChain))
}

var _ secondary.ChainScheduler = (*Chain)(nil)
