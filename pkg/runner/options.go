package runner

import (
	"log/slog"
)

// DefaultMaxFormAttempts bounds how often a rejected form is asked again.
const DefaultMaxFormAttempts = 3

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID sets the conversation the runner drives.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithInterceptor configures the input middleware.
func WithInterceptor(interceptor InputInterceptor) Option {
	return func(r *Runner) {
		r.Interceptor = interceptor
	}
}

// WithMaxFormAttempts sets how often a form rejected by validation is asked again.
func WithMaxFormAttempts(n int) Option {
	return func(r *Runner) {
		r.MaxFormAttempts = n
	}
}

// WithReplay prints the stored transcript before reading input.
func WithReplay(replay bool) Option {
	return func(r *Runner) {
		r.Replay = replay
	}
}
