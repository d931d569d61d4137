package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/concierge/pkg/domain"
)

const progressWidth = 20

var (
	colorAccent = lipgloss.Color("#a78bfa")
	colorGreen  = lipgloss.Color("#34d399")
	colorDim    = lipgloss.Color("#6b7280")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111827")).
			Background(colorGreen).
			Padding(0, 1)
	dimStyle  = lipgloss.NewStyle().Foreground(colorDim)
	nextStyle = lipgloss.NewStyle().Foreground(colorAccent).Italic(true)
)

// RenderCard draws a card as a bordered box. It satisfies runner.CardRenderer.
func RenderCard(c domain.Card) string {
	header := titleStyle.Render(c.Title)
	if c.Badge != "" {
		header += "  " + badgeStyle.Render(c.Badge)
	}

	rows := []string{header}
	if len(c.Lines) > 0 {
		rows = append(rows, "")
		rows = append(rows, c.Lines...)
	}
	if c.Progress != nil {
		rows = append(rows, "", ProgressBar(*c.Progress, progressWidth))
	}
	if c.LastUpdate != "" {
		rows = append(rows, dimStyle.Render(c.LastUpdate))
	}
	if c.NextAction != "" {
		rows = append(rows, "", nextStyle.Render("→ "+c.NextAction))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// ProgressBar renders pct (clamped to 0-100) as a fixed-width bar.
func ProgressBar(pct, width int) string {
	pct = min(max(pct, 0), 100)
	filled := pct * width / 100
	bar := lipgloss.NewStyle().Foreground(colorGreen).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
	return bar + " " + lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(pct)+"%")
}
