package runner

import (
	"context"
	"errors"

	"github.com/aretw0/concierge/pkg/domain"
)

// ErrFormCancelled is returned by IOHandler.Fill when the user abandons a form.
var ErrFormCancelled = errors.New("form cancelled")

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents one transcript turn.
	Output(ctx context.Context, turn domain.Turn) error

	// Input reads the next free-text utterance.
	Input(ctx context.Context) (string, error)

	// Fill collects values for the fields of a prompt.
	Fill(ctx context.Context, prompt domain.Prompt) (domain.Draft, error)

	// SystemOutput presents a meta-message to the user (validation errors, status updates).
	// This is distinct from transcript rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms text content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// CardRenderer draws a terminal card.
type CardRenderer func(domain.Card) string

// FormFiller collects prompt values with a richer UI than line prompts.
type FormFiller func(ctx context.Context, prompt domain.Prompt) (domain.Draft, error)
