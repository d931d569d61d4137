package tui

import (
	"github.com/charmbracelet/glamour"

	"github.com/aretw0/concierge/pkg/runner"
)

// NewRenderer returns a ContentRenderer that renders markdown using glamour.
// Text is passed through unchanged if the renderer cannot be built.
func NewRenderer() runner.ContentRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
