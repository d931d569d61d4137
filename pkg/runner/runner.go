package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/schema"
)

// Conversation is the part of session.Manager the runner drives.
type Conversation interface {
	SubmitText(ctx context.Context, sessionID, text string) (domain.Turn, error)
	Answer(ctx context.Context, sessionID string, promptTurnID int64, values domain.Draft) (domain.Turn, error)
	Turns(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

// Runner handles the chat loop of one session using the provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Interceptor runs on every utterance. Defaults to SanitizeMiddleware.
	Interceptor InputInterceptor

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	SessionID       string
	MaxFormAttempts int
	Replay          bool

	conv Conversation
}

// NewRunner creates a Runner over a conversation owner (usually *session.Manager).
func NewRunner(conv Conversation, opts ...Option) *Runner {
	r := &Runner{
		Interceptor:     SanitizeMiddleware(),
		Logger:          logging.NewNop(),
		MaxFormAttempts: DefaultMaxFormAttempts,
		conv:            conv,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Run reads utterances until EOF, "exit"/"quit" or ctx cancellation.
func (r *Runner) Run(ctx context.Context) error {
	if r.SessionID == "" {
		return errors.New("runner: session ID is required")
	}

	if r.Replay {
		if err := r.replay(ctx); err != nil {
			return err
		}
	}

	for {
		input, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		input, err = r.Interceptor(ctx, input)
		if err != nil {
			r.system(ctx, fmt.Sprintf("Error: %v. Please try again.", err))
			continue
		}

		turn, err := r.conv.SubmitText(ctx, r.SessionID, input)
		if err != nil {
			if errors.Is(err, domain.ErrSessionBusy) {
				r.system(ctx, "Still working on your previous message.")
				continue
			}
			return fmt.Errorf("submit error: %w", err)
		}

		if err := r.present(ctx, turn); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// replay prints the stored transcript and resumes an open form.
func (r *Runner) replay(ctx context.Context) error {
	turns, err := r.conv.Turns(ctx, r.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}
	if len(turns) == 0 {
		return nil
	}
	for _, t := range turns[:len(turns)-1] {
		if err := r.Handler.Output(ctx, t); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	last := turns[len(turns)-1]
	if last.Role == domain.RoleUser {
		return r.Handler.Output(ctx, last)
	}
	return r.present(ctx, last)
}

// present outputs an assistant turn and keeps filling forms until the
// conversation reaches a turn without one.
func (r *Runner) present(ctx context.Context, turn domain.Turn) error {
	for {
		if err := r.Handler.Output(ctx, turn); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if turn.Presentation != domain.PresentForm || turn.Form == nil {
			return nil
		}

		next, ok, err := r.fill(ctx, turn)
		if err != nil || !ok {
			return err
		}
		turn = next
	}
}

// fill asks for the form values, retrying on validation errors.
// ok is false when the user gave up on the form.
func (r *Runner) fill(ctx context.Context, turn domain.Turn) (domain.Turn, bool, error) {
	for attempt := 1; ; attempt++ {
		values, err := r.Handler.Fill(ctx, *turn.Form)
		if errors.Is(err, ErrFormCancelled) {
			r.system(ctx, "Form cancelled.")
			return domain.Turn{}, false, nil
		}
		if err != nil {
			return domain.Turn{}, false, fmt.Errorf("form input error: %w", err)
		}

		if values, err = SanitizeValues(values); err != nil {
			r.system(ctx, fmt.Sprintf("Error: %v.", err))
		} else {
			next, err := r.conv.Answer(ctx, r.SessionID, turn.ID, values)
			if err == nil {
				return next, true, nil
			}
			if schema.ValidationErrors(err) == nil {
				return domain.Turn{}, false, fmt.Errorf("submit error: %w", err)
			}
			r.Logger.Debug("Form rejected", "session_id", r.SessionID, "turn_id", turn.ID, "attempt", attempt)
			r.system(ctx, FormatFieldErrors(*turn.Form, err))
		}

		if attempt >= r.MaxFormAttempts {
			r.system(ctx, "Too many attempts, leaving the form.")
			return domain.Turn{}, false, nil
		}
	}
}

func (r *Runner) system(ctx context.Context, msg string) {
	if err := r.Handler.SystemOutput(ctx, msg); err != nil {
		r.Logger.Warn("Failed to write system output", "err", err)
	}
}

// FormatFieldErrors lists validation failures by field label, in form order.
func FormatFieldErrors(prompt domain.Prompt, err error) string {
	fields := schema.FieldErrors(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	order := func(name string) int {
		for i, f := range prompt.Fields {
			if f.Name == name {
				return i
			}
		}
		return len(prompt.Fields)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := order(a) - order(b); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	var b strings.Builder
	b.WriteString("Please fix the following:")
	for _, name := range names {
		label := name
		if f, ok := prompt.Field(name); ok && f.Label != "" {
			label = f.Label
		}
		fmt.Fprintf(&b, "\n  - %s: %s", label, fields[name])
	}
	return b.String()
}
