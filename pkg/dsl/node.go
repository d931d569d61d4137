package dsl

import "github.com/aretw0/concierge/pkg/domain"

// FieldOption configures a field.
type FieldOption func(*domain.FieldSpec)

// Required marks the field as mandatory.
func Required() FieldOption {
	return func(f *domain.FieldSpec) { f.Required = true }
}

// Placeholder sets the hint text.
func Placeholder(hint string) FieldOption {
	return func(f *domain.FieldSpec) { f.Placeholder = hint }
}

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step    domain.Step
	builder *Builder
}

// Title sets the prompt heading.
func (s *StepBuilder) Title(title string) *StepBuilder {
	s.step.Title = title
	return s
}

// Submit sets the label of the submit button.
func (s *StepBuilder) Submit(label string) *StepBuilder {
	s.step.SubmitLabel = label
	return s
}

func (s *StepBuilder) field(t domain.FieldType, name, label string, options []string, opts []FieldOption) *StepBuilder {
	f := domain.FieldSpec{Name: name, Label: label, Type: t, Options: options}
	for _, opt := range opts {
		opt(&f)
	}
	s.step.Fields = append(s.step.Fields, f)
	return s
}

// Text adds a single-line text field.
func (s *StepBuilder) Text(name, label string, opts ...FieldOption) *StepBuilder {
	return s.field(domain.FieldText, name, label, nil, opts)
}

// Email adds an e-mail field.
func (s *StepBuilder) Email(name, label string, opts ...FieldOption) *StepBuilder {
	return s.field(domain.FieldEmail, name, label, nil, opts)
}

// Date adds a YYYY-MM-DD date field.
func (s *StepBuilder) Date(name, label string, opts ...FieldOption) *StepBuilder {
	return s.field(domain.FieldDate, name, label, nil, opts)
}

// Textarea adds a multi-line text field.
func (s *StepBuilder) Textarea(name, label string, opts ...FieldOption) *StepBuilder {
	return s.field(domain.FieldTextarea, name, label, nil, opts)
}

// Radio adds a single-choice field.
func (s *StepBuilder) Radio(name, label string, options []string, opts ...FieldOption) *StepBuilder {
	return s.field(domain.FieldRadio, name, label, options, opts)
}

// Default adds a value to the carried draft when this step is prompted, unless the key is already set.
func (s *StepBuilder) Default(key, value string) *StepBuilder {
	s.step.Defaults.Set(key, value)
	return s
}

// When makes the step active only if an earlier answer equals one of values.
func (s *StepBuilder) When(field string, values ...string) *StepBuilder {
	s.step.When = &domain.Condition{Field: field, Equals: values}
	return s
}

// Step continues with the next step of the same flow.
func (s *StepBuilder) Step(id string) *StepBuilder {
	return s.builder.Step(id)
}

// Card continues with the terminal card of the same flow.
func (s *StepBuilder) Card(titleFormat string) *CardBuilder {
	return s.builder.Card(titleFormat)
}

// Build returns the underlying domain.Step.
func (s *StepBuilder) Build() domain.Step {
	return s.step
}

// CardBuilder configures the terminal card of a flow.
type CardBuilder struct {
	spec    domain.CardSpec
	builder *Builder
}

// Badge sets the status string.
func (c *CardBuilder) Badge(badge string) *CardBuilder {
	c.spec.Badge = badge
	return c
}

// Line adds a display line built from one or more draft keys.
func (c *CardBuilder) Line(label string, keys ...string) *CardBuilder {
	c.spec.Lines = append(c.spec.Lines, domain.CardLine{Label: label, Keys: keys})
	return c
}

// Progress sets a fixed progress percentage.
func (c *CardBuilder) Progress(pct int) *CardBuilder {
	pct = max(0, min(pct, 100))
	c.spec.Progress = &pct
	return c
}

// LastUpdate sets the "last update" text.
func (c *CardBuilder) LastUpdate(text string) *CardBuilder {
	c.spec.LastUpdate = text
	return c
}

// NextAction sets the "next action" text.
func (c *CardBuilder) NextAction(text string) *CardBuilder {
	c.spec.NextAction = text
	return c
}

// Decorate registers a function that adjusts the card from the final draft.
func (c *CardBuilder) Decorate(fn func(domain.Draft, *domain.Card)) *CardBuilder {
	c.spec.Decorate = fn
	return c
}

// Build validates and returns the whole flow.
func (c *CardBuilder) Build() (domain.Flow, error) {
	return c.builder.Build()
}

// MustBuild is like Build but panics on an invalid definition.
func (c *CardBuilder) MustBuild() domain.Flow {
	return c.builder.MustBuild()
}
