package domain

// FieldType defines the kind of input a form field collects.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldDate     FieldType = "date"
	FieldTextarea FieldType = "textarea"
	FieldRadio    FieldType = "radio"
)

// FieldSpec describes one input of a Prompt.
type FieldSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	// Options is the set of legal values. Present iff Type == FieldRadio.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Prompt is the resolver's request for the next step of a flow.
type Prompt struct {
	FlowID string `json:"flow_id"`
	// StepID is informational; control flow is re-derived from the draft.
	StepID      string      `json:"step_id"`
	Title       string      `json:"title"`
	Fields      []FieldSpec `json:"fields,omitempty"`
	SubmitLabel string      `json:"submit_label,omitempty"`
	StepIndex   int         `json:"step_index"`
	StepCount   int         `json:"step_count"`
	Draft       Draft       `json:"draft"`
}

// Progress returns the completion percentage of the flow when this prompt is shown.
func (p Prompt) Progress() int {
	if p.StepCount <= 0 {
		return 0
	}
	pct := p.StepIndex * 100 / p.StepCount
	if pct > 100 {
		return 100
	}
	return pct
}

// Field returns the field spec with the given name.
func (p Prompt) Field(name string) (FieldSpec, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Card is a read-only terminal summary produced when a flow completes.
type Card struct {
	FlowID    string   `json:"flow_id"`
	Reference string   `json:"reference,omitempty"`
	Title     string   `json:"title"`
	Badge     string   `json:"badge,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	// Progress is a 0-100 percentage, nil when the card has no progress bar.
	Progress   *int   `json:"progress,omitempty"`
	LastUpdate string `json:"last_update,omitempty"`
	NextAction string `json:"next_action,omitempty"`
}
