package server

import (
	"context"
	"errors"
	"time"

	"github.com/msalah0e/garden/internal/layout"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("engine loop stopped")

var _ layout.Clock = (*Loop)(nil)

type scheduled struct {
	handle layout.Handle
	fn     func()
}

// Loop owns the engine goroutine. Commands from HTTP handlers and websocket
// clients are funnelled through Do, and simulation ticks requested through
// the layout.Clock interface fire on a fixed frame interval, so the engine
// never sees two callers at once.
//
// RequestTick and Cancel must only be called from the loop goroutine (or
// before Run starts); the engine does exactly that.
type Loop struct {
	interval time.Duration
	cmds     chan func()
	done     chan struct{}

	next    layout.Handle
	pending []scheduled

	// after runs on the loop goroutine after every command and frame.
	after func()
}

// NewLoop returns a loop that fires ticks fps times per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		cmds:     make(chan func(), 64),
		done:     make(chan struct{}),
	}
}

func (l *Loop) RequestTick(fn func()) layout.Handle {
	l.next++
	l.pending = append(l.pending, scheduled{handle: l.next, fn: fn})
	return l.next
}

func (l *Loop) Cancel(h layout.Handle) {
	for i, s := range l.pending {
		if s.handle == h {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.cmds <- wrapped:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run serves commands and ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.cmds:
			fn()
		case <-ticker.C:
			if len(l.pending) > 0 {
				l.fire()
			}
		}
		if l.after != nil {
			l.after()
		}
	}
}

// fire runs the ticks that were pending when the frame started. Ticks they
// request land in the next frame.
func (l *Loop) fire() {
	due := l.pending
	l.pending = nil
	for _, s := range due {
		s.fn()
	}
}
