package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/runner"
	"github.com/aretw0/concierge/pkg/schema"
)

func conciergeTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(colorAccent)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(colorGreen)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")).Background(colorAccent).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(colorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(colorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(colorDim)
	return t
}

// FieldValidator checks one value the way the submission will be checked, so
// the user sees errors inline instead of after submitting.
func FieldValidator(f domain.FieldSpec) func(string) error {
	typ, err := schema.ParseType(f.Type, f.Options)
	return func(v string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			if f.Required {
				return errors.New("required")
			}
			return nil
		}
		if err != nil {
			return err
		}
		return typ.Validate(v)
	}
}

// FillForm shows the prompt as a huh form. It satisfies runner.FormFiller;
// aborting the form returns runner.ErrFormCancelled.
func FillForm(ctx context.Context, prompt domain.Prompt) (domain.Draft, error) {
	values := make([]string, len(prompt.Fields))
	for i, f := range prompt.Fields {
		values[i] = prompt.Draft.Value(f.Name)
	}

	fields := make([]huh.Field, 0, len(prompt.Fields))
	for i, f := range prompt.Fields {
		fields = append(fields, formField(f, &values[i]))
	}

	title := prompt.Title
	if prompt.StepCount > 1 {
		title = fmt.Sprintf("%s  (step %d of %d)", prompt.Title, prompt.StepIndex+1, prompt.StepCount)
	}
	group := huh.NewGroup(fields...).Title(title)

	form := huh.NewForm(group).WithTheme(conciergeTheme()).WithShowHelp(false)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return domain.Draft{}, runner.ErrFormCancelled
		}
		return domain.Draft{}, err
	}

	var out domain.Draft
	for i, f := range prompt.Fields {
		if v := strings.TrimSpace(values[i]); v != "" {
			out.Set(f.Name, v)
		}
	}
	return out, nil
}

func formField(f domain.FieldSpec, value *string) huh.Field {
	title := f.Label
	if f.Required {
		title += " *"
	}
	validate := FieldValidator(f)

	switch f.Type {
	case domain.FieldRadio:
		if *value == "" && len(f.Options) > 0 {
			*value = f.Options[0]
		}
		return huh.NewSelect[string]().
			Title(title).
			Options(huh.NewOptions(f.Options...)...).
			Value(value)
	case domain.FieldTextarea:
		return huh.NewText().
			Title(title).
			Placeholder(f.Placeholder).
			Value(value).
			Validate(validate)
	case domain.FieldDate:
		placeholder := f.Placeholder
		if placeholder == "" {
			placeholder = schema.DateLayout
		}
		return huh.NewInput().
			Title(title).
			Placeholder(placeholder).
			Value(value).
			Validate(validate)
	default:
		return huh.NewInput().
			Title(title).
			Placeholder(f.Placeholder).
			Value(value).
			Validate(validate)
	}
}
