// Package future runs a function in the background and lets callers wait for
// it with a bound, abandoning the wait (not the work) when the bound passes.
package future

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrAbandoned is returned by WaitFor when the work outlived the wait.
var ErrAbandoned = errors.New("stopped waiting for background work")

//Future ...
type Future struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Go starts fn on a context derived from ctx.
func Go(ctx context.Context, fn func(ctx context.Context) error) *Future {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(f.done)
		defer cancel()
		f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the work has returned.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the work returns or ctx ends.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitFor waits at most d. The work keeps running after ErrAbandoned.
func (f *Future) WaitFor(d time.Duration) error {
	select {
	case <-f.done:
		return f.err
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-f.done:
		return f.err
	case <-t.C:
		return ErrAbandoned
	}
}

// Cancel aborts the work's context.
func (f *Future) Cancel() {
	f.cancel()
}
