package dsl

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/schema"
)

// DefaultDigits is the reference number width when a flow does not set one.
const DefaultDigits = 3

// Builder manages the construction of one flow.
type Builder struct {
	flow  domain.Flow
	steps []*StepBuilder
	card  *CardBuilder
}

// New creates a new flow builder.
func New(id string) *Builder {
	b := &Builder{flow: domain.Flow{ID: id}}
	b.card = &CardBuilder{builder: b}
	return b
}

// Title sets the human-readable name of the flow.
func (b *Builder) Title(title string) *Builder {
	b.flow.Title = title
	return b
}

// Describe sets a one-line description shown in listings.
func (b *Builder) Describe(desc string) *Builder {
	b.flow.Description = desc
	return b
}

// Keywords adds the phrases that start the flow from free text.
func (b *Builder) Keywords(words ...string) *Builder {
	b.flow.Keywords = append(b.flow.Keywords, words...)
	return b
}

// Reference sets the prefix and digit count of the synthesized reference (e.g. "BK", 4 -> BK-1234).
func (b *Builder) Reference(prefix string, digits int) *Builder {
	b.flow.Prefix = prefix
	b.flow.Digits = digits
	return b
}

// Text makes the flow a single static reply with no steps.
func (b *Builder) Text(content string) *Builder {
	b.flow.Text = content
	return b
}

// Step appends a new step. Steps are prompted in declaration order.
// If a step with the same ID exists, it returns the existing builder.
func (b *Builder) Step(id string) *StepBuilder {
	for _, sb := range b.steps {
		if sb.step.ID == id {
			return sb
		}
	}
	sb := &StepBuilder{step: domain.Step{ID: id}, builder: b}
	b.steps = append(b.steps, sb)
	return sb
}

// Card returns the builder of the terminal card.
func (b *Builder) Card(titleFormat string) *CardBuilder {
	b.card.spec.TitleFormat = titleFormat
	return b.card
}

// Build validates and returns the flow.
func (b *Builder) Build() (domain.Flow, error) {
	f := b.flow
	f.Steps = make([]domain.Step, 0, len(b.steps))
	for _, sb := range b.steps {
		f.Steps = append(f.Steps, sb.step)
	}
	f.Card = b.card.spec
	if len(f.Steps) > 0 && f.Digits <= 0 {
		f.Digits = DefaultDigits
	}
	if err := Check(f); err != nil {
		return domain.Flow{}, fmt.Errorf("flow %s: %w", f.ID, err)
	}
	return f, nil
}

// MustBuild is like Build but panics on an invalid definition.
// It is meant for flows declared at package init.
func (b *Builder) MustBuild() domain.Flow {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

// Check verifies the invariants the resolver relies on:
// field names are unique across the whole flow (the key set identifies the step),
// conditions refer to fields of earlier steps, and step flows have a reference prefix and card.
func Check(f domain.Flow) error {
	var errs []error
	if strings.TrimSpace(f.ID) == "" {
		errs = append(errs, errors.New("flow id is empty"))
	}
	if len(f.Steps) == 0 {
		if f.Text == "" {
			errs = append(errs, errors.New("flow has neither steps nor text"))
		}
		return errors.Join(errs...)
	}
	if f.Prefix == "" {
		errs = append(errs, errors.New("reference prefix is empty"))
	}
	if f.Card.TitleFormat == "" {
		errs = append(errs, errors.New("card title is empty"))
	}

	var seenFields, seenSteps []string
	for i, s := range f.Steps {
		if slices.Contains(seenSteps, s.ID) {
			errs = append(errs, fmt.Errorf("duplicate step %q", s.ID))
		}
		seenSteps = append(seenSteps, s.ID)
		if len(s.Fields) == 0 {
			errs = append(errs, fmt.Errorf("step %q has no fields", s.ID))
		}
		if err := schema.Check(s.Fields); err != nil {
			errs = append(errs, fmt.Errorf("step %q: %w", s.ID, err))
		}
		if s.When != nil {
			if i == 0 {
				errs = append(errs, fmt.Errorf("step %q: first step cannot be conditional", s.ID))
			} else if !slices.Contains(seenFields, s.When.Field) {
				errs = append(errs, fmt.Errorf("step %q: condition field %q is not asked by an earlier step", s.ID, s.When.Field))
			}
		}
		for _, name := range s.Keys() {
			if slices.Contains(seenFields, name) {
				errs = append(errs, fmt.Errorf("step %q: field %q already asked by an earlier step", s.ID, name))
			}
			seenFields = append(seenFields, name)
		}
	}
	return errors.Join(errs...)
}
