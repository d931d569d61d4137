package cli

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Interrupt is a context cancelled by SIGINT or SIGTERM that remembers which
// signal arrived, so commands can tell a user interrupt from a normal return.
type Interrupt struct {
	context.Context
	cancel context.CancelFunc
	got    atomic.Value
}

// WithInterrupt derives an Interrupt from parent. Call Stop to release the
// signal handler.
func WithInterrupt(parent context.Context) *Interrupt {
	ctx, cancel := context.WithCancel(parent)
	in := &Interrupt{Context: ctx, cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			in.got.Store(sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return in
}

// Stop cancels the context and stops listening for signals.
func (in *Interrupt) Stop() { in.cancel() }

// Signal is the signal that cancelled the context, nil if none did.
func (in *Interrupt) Signal() os.Signal {
	sig, _ := in.got.Load().(os.Signal)
	return sig
}

// Interrupted reports whether a signal cancelled the context.
func (in *Interrupt) Interrupted() bool { return in.Signal() != nil }
