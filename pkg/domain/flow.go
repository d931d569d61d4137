package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Condition gates a step on a value already present in the draft.
// A step with a nil Condition is always active.
type Condition struct {
	Field  string   `json:"field" yaml:"field"`
	Equals []string `json:"equals" yaml:"equals"`
}

// Holds reports whether the draft satisfies the condition (case-insensitive).
func (c *Condition) Holds(d Draft) bool {
	if c == nil {
		return true
	}
	v := strings.TrimSpace(d.Value(c.Field))
	for _, want := range c.Equals {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s in [%s]", c.Field, strings.Join(c.Equals, ", "))
}

// Step is one form of a flow.
type Step struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Fields      []FieldSpec `json:"fields" yaml:"fields"`
	SubmitLabel string      `json:"submit_label,omitempty" yaml:"submit_label,omitempty"`
	// Defaults are added to the carried draft when this step is prompted, for absent keys only.
	Defaults Draft `json:"defaults,omitempty" yaml:"-"`
	// When makes the step conditional on an earlier answer.
	When *Condition `json:"when,omitempty" yaml:"when,omitempty"`
}

// Active reports whether the step applies to the draft.
func (s Step) Active(d Draft) bool {
	return s.When.Holds(d)
}

// Complete reports whether every required field of the step has a value.
func (s Step) Complete(d Draft) bool {
	for _, f := range s.Fields {
		if f.Required && !d.Has(f.Name) {
			return false
		}
	}
	return true
}

// Keys returns the names of the step's fields.
func (s Step) Keys() []string {
	keys := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		keys = append(keys, f.Name)
	}
	return keys
}

// CardLine renders one line of the terminal card from draft values.
// Values of Keys are joined with a space; the line is skipped when all are blank.
type CardLine struct {
	Label string   `json:"label" yaml:"label"`
	Keys  []string `json:"keys" yaml:"keys"`
}

// Render returns the display line and whether any value was present.
func (l CardLine) Render(d Draft) (string, bool) {
	parts := make([]string, 0, len(l.Keys))
	for _, k := range l.Keys {
		if v := strings.TrimSpace(d.Value(k)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return l.Label + ": " + strings.Join(parts, " "), true
}

// CardSpec describes how a completed draft becomes a Card.
type CardSpec struct {
	// TitleFormat receives the synthesized reference, e.g. "✅ Booking Confirmed: %s".
	TitleFormat string     `json:"title_format" yaml:"title_format"`
	Badge       string     `json:"badge,omitempty" yaml:"badge,omitempty"`
	Lines       []CardLine `json:"lines" yaml:"lines"`
	Progress    *int       `json:"progress,omitempty" yaml:"progress,omitempty"`
	LastUpdate  string     `json:"last_update,omitempty" yaml:"last_update,omitempty"`
	NextAction  string     `json:"next_action,omitempty" yaml:"next_action,omitempty"`
	// Decorate can adjust the card from the draft (status lookups, computed totals).
	Decorate func(d Draft, c *Card) `json:"-" yaml:"-"`
}

// Flow is one complete multi-step wizard.
type Flow struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Keywords are matched case-insensitively against free text to enter the flow.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	// Prefix and Digits shape the synthesized reference, e.g. BK-1234.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Digits int    `json:"digits,omitempty" yaml:"digits,omitempty"`
	// Text is the whole reply of a text-only flow (no steps), e.g. the main menu.
	Text  string   `json:"text,omitempty" yaml:"text,omitempty"`
	Steps []Step   `json:"steps,omitempty" yaml:"steps,omitempty"`
	Card  CardSpec `json:"card" yaml:"card"`
}

// IsText reports whether the flow is a single static text reply.
func (f Flow) IsText() bool {
	return len(f.Steps) == 0
}

// ActiveSteps returns the steps that apply to the draft, in declaration order.
func (f Flow) ActiveSteps(d Draft) []Step {
	out := make([]Step, 0, len(f.Steps))
	for _, s := range f.Steps {
		if s.Active(d) {
			out = append(out, s)
		}
	}
	return out
}

// Step looks up a step by ID.
func (f Flow) Step(id string) (Step, bool) {
	for _, s := range f.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Keys returns every draft key the flow can produce: field names and default keys.
func (f Flow) Keys() []string {
	var keys []string
	add := func(k string) {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	for _, s := range f.Steps {
		for _, k := range s.Keys() {
			add(k)
		}
		s.Defaults.Each(func(k, _ string) { add(k) })
	}
	return keys
}
