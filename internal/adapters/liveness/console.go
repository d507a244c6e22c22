// Package liveness implements the surfaces showing that background status
// logging is alive or stopped.
package liveness

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/example/attend/internal/ports/secondary"
)

// Console prints liveness changes as a single coloured status line.
// Repeated identical signals are printed once.
type Console struct {
	out io.Writer

	mu   sync.Mutex
	last string
}

// NewConsole creates a console surface writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Show prints the presentation for signal.
func (c *Console) Show(ctx context.Context, signal secondary.LivenessSignal) {
	line := Describe(signal)

	c.mu.Lock()
	defer c.mu.Unlock()
	if line == c.last {
		return
	}
	c.last = line

	switch signal.State {
	case secondary.LivenessStopped:
		fmt.Fprintln(c.out, color.New(color.FgRed).Sprint("○ ")+line)
	case secondary.LivenessSynced:
		fmt.Fprintln(c.out, color.New(color.FgGreen).Sprint("● ")+line)
	default:
		fmt.Fprintln(c.out, color.New(color.FgYellow).Sprint("● ")+line)
	}
}

// Describe renders the text of a liveness signal.
func Describe(signal secondary.LivenessSignal) string {
	switch signal.State {
	case secondary.LivenessStopped:
		return "attendance logging stopped"
	case secondary.LivenessSynced:
		return fmt.Sprintf("attendance logging running, last synced at %s", signal.SyncedAt.Local().Format("15:04"))
	default:
		return "attendance logging running"
	}
}

// Fanout forwards every signal to several surfaces.
type Fanout []secondary.LivenessSurface

func (f Fanout) Show(ctx context.Context, signal secondary.LivenessSignal) {
	for _, s := range f {
		s.Show(ctx, signal)
	}
}

var (
	_ secondary.LivenessSurface = (*Console)(nil)
	_ secondary.LivenessSurface = Fanout(nil)
)
