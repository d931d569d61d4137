package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

const (
	// DefaultThinkLatency is the simulated round-trip before each resolve.
	DefaultThinkLatency = 800 * time.Millisecond
	// DefaultResolveTimeout bounds every resolve call.
	DefaultResolveTimeout = 10 * time.Second
)

// LocalTransport is the seam in front of the resolver. It waits a fixed think
// delay, bounds the call with a timeout and turns panics into errors.
// A remote backend client can replace it behind the same ports.Resolver contract.
type LocalTransport struct {
	next    ports.Resolver
	latency time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// TransportOption configures the LocalTransport.
type TransportOption func(*LocalTransport)

// WithLatency sets the think delay. Zero disables it.
func WithLatency(d time.Duration) TransportOption {
	return func(t *LocalTransport) { t.latency = d }
}

// WithTimeout sets the resolve timeout. Zero disables it.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *LocalTransport) { t.timeout = d }
}

// WithTransportLogger configures a logger for the transport.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *LocalTransport) { t.logger = logger }
}

// NewLocalTransport wraps a resolver.
func NewLocalTransport(next ports.Resolver, opts ...TransportOption) *LocalTransport {
	t := &LocalTransport{
		next:    next,
		latency: DefaultThinkLatency,
		timeout: DefaultResolveTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Timeout returns the configured resolve timeout.
func (t *LocalTransport) Timeout() time.Duration {
	return t.timeout
}

type result struct {
	reply domain.Reply
	err   error
}

// Resolve waits the think delay, then calls the wrapped resolver.
// The timeout covers both; it surfaces as domain.ErrResolveTimeout.
func (t *LocalTransport) Resolve(ctx context.Context, msg domain.Message) (domain.Reply, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if t.latency > 0 {
		timer := time.NewTimer(t.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Reply{}, t.ctxErr(ctx)
		case <-timer.C:
		}
	}

	// Buffered: the sender never blocks once we stop waiting.
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				t.logger.Error("Resolver panicked", "panic", p)
				ch <- result{err: fmt.Errorf("resolver panic: %v", p)}
			}
		}()
		reply, err := t.next.Resolve(ctx, msg)
		ch <- result{reply: reply, err: err}
	}()

	select {
	case res := <-ch:
		return res.reply, res.err
	case <-ctx.Done():
		return domain.Reply{}, t.ctxErr(ctx)
	}
}

func (t *LocalTransport) ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrResolveTimeout, t.timeout)
	}
	return ctx.Err()
}
