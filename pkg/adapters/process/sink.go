// Package process hands completed-flow records to local commands, e.g. a script
// that pushes a booking into the back office.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
)

// AnyFlow registers a command for every flow.
const AnyFlow = "*"

// DefaultTimeout bounds a command without its own timeout.
const DefaultTimeout = 30 * time.Second

// Sink implements ports.RecordSink by running allow-listed commands.
// Record values are passed as environment variables, never as arguments:
//
//	CONCIERGE_FLOW_ID, CONCIERGE_REFERENCE, CONCIERGE_SESSION_ID,
//	CONCIERGE_FIELD_<NAME> for every field of the record.
//
// The record itself is also written to the command's stdin as JSON.
type Sink struct {
	registry map[string][]CommandConfig
	baseDir  string
	logger   *slog.Logger
}

// SinkOption configures the sink.
type SinkOption func(*Sink)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(commands map[string][]CommandConfig) SinkOption {
	return func(s *Sink) {
		for _, cs := range commands {
			for _, c := range cs {
				s.Register(c)
			}
		}
	}
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) SinkOption {
	return func(s *Sink) {
		s.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SinkOption {
	return func(s *Sink) {
		s.logger = logger
	}
}

// NewSink creates a command sink.
func NewSink(opts ...SinkOption) *Sink {
	s := &Sink{
		registry: make(map[string][]CommandConfig),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a trusted command to the allow-list.
func (s *Sink) Register(c CommandConfig) {
	s.registry[c.Flow] = append(s.registry[c.Flow], c)
}

// Len returns the number of registered commands.
func (s *Sink) Len() int {
	n := 0
	for _, cs := range s.registry {
		n += len(cs)
	}
	return n
}

// Publish runs every command registered for the record's flow, then the wildcard ones.
// All commands run even if one fails; the failures are joined.
func (s *Sink) Publish(ctx context.Context, rec domain.Record) error {
	commands := append(append([]CommandConfig{}, s.registry[rec.FlowID]...), s.registry[AnyFlow]...)
	if len(commands) == 0 {
		return nil
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	env := recordEnv(rec)

	var errs []error
	for _, c := range commands {
		if err := s.run(ctx, c, env, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Command, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) run(ctx context.Context, c CommandConfig, env []string, payload []byte) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = s.baseDir
	cmd.WaitDelay = time.Second
	cmd.Env = cmd.Environ()
	for k, v := range c.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		s.logger.Warn("Record command failed",
			"command", c.Command, "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("execution failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	s.logger.Debug("Record command finished",
		"command", c.Command, "duration", time.Since(start), "stdout", strings.TrimSpace(stdout.String()))
	return nil
}

func recordEnv(rec domain.Record) []string {
	env := []string{
		"CONCIERGE_FLOW_ID=" + rec.FlowID,
		"CONCIERGE_REFERENCE=" + rec.Reference,
		"CONCIERGE_SESSION_ID=" + rec.SessionID,
	}
	rec.Fields.Each(func(k, v string) {
		env = append(env, "CONCIERGE_FIELD_"+envName(k)+"="+v)
	})
	return env
}

// envName turns a field key into an environment variable suffix: customerName -> CUSTOMER_NAME.
func envName(key string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range key {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
			prevLower = true
		default:
			b.WriteByte('_')
			prevLower = false
		}
	}
	return b.String()
}
