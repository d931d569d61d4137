package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
)

// Overlay marks the steps a conversation has already seen and the one it is on.
type Overlay struct {
	VisitedSteps []string
	CurrentStep  string
}

const (
	startID = "flow_start"
	cardID  = "flow_card"
)

// GenerateMermaid produces a Mermaid flowchart for a flow. Shapes:
// - Entry: ((Circle)) labelled with the flow title
// - Step (form): [/Parallelogram/]
// - Completion card: [[Subroutine]]
// - Text-only reply: [Rectangle]
// Edges into conditional steps carry the condition; a step can be skipped when
// every step after it up to the next unconditional one is conditional.
func GenerateMermaid(flow domain.Flow, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", startID, escape(flow.Title)))

	if flow.IsText() {
		sb.WriteString(fmt.Sprintf("    reply[\"%s\"]\n", escape(firstLine(flow.Text))))
		sb.WriteString(fmt.Sprintf("    %s --> reply\n", startID))
		return sb.String()
	}

	for _, step := range flow.Steps {
		label := step.Title
		if label == "" {
			label = step.ID
		}
		label = fmt.Sprintf("%s <br/> %d fields", escape(label), len(step.Fields))
		sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", sanitizeMermaidID(step.ID), label))
	}
	cardTitle := strings.ReplaceAll(flow.Card.TitleFormat, "%s", flow.Prefix+"-…")
	sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", cardID, escape(cardTitle)))

	writeEdges(&sb, startID, flow.Steps)
	for i, step := range flow.Steps {
		writeEdges(&sb, sanitizeMermaidID(step.ID), flow.Steps[i+1:])
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentStep != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

// writeEdges links from to each following step until one is unconditional,
// or to the card when every remaining step is conditional.
func writeEdges(sb *strings.Builder, from string, rest []domain.Step) {
	for _, next := range rest {
		to := sanitizeMermaidID(next.ID)
		if next.When == nil {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
			return
		}
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, escape(next.When.String()), to))
	}
	sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, cardID))
}

// OverlayFromTurns derives the overlay of a flow from a transcript: every step
// prompted for the flow is visited, and the step of the latest assistant turn is
// current while it is still an open prompt of this flow.
func OverlayFromTurns(flowID string, turns []domain.Turn) *Overlay {
	o := &Overlay{}
	var last *domain.Turn
	for i := range turns {
		t := turns[i]
		if t.Role != domain.RoleAssistant {
			continue
		}
		last = &turns[i]
		if t.Form != nil && t.Form.FlowID == flowID {
			o.VisitedSteps = append(o.VisitedSteps, t.Form.StepID)
		}
	}
	if last != nil && last.Form != nil && last.Form.FlowID == flowID {
		o.CurrentStep = last.Form.StepID
	}
	return o
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
