package schema

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
)

// DateLayout is the accepted layout of date fields (ISO-8601 calendar date).
const DateLayout = "2006-01-02"

// Type defines the contract for field validation.
// Validate is only called for non-blank values; blank handling is the Required flag's job.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "text", "date").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value string) error
}

// --- Built-in Type Implementations ---

// TextType accepts any single-line string.
type TextType struct{}

func (t *TextType) Name() string { return string(domain.FieldText) }

func (t *TextType) Validate(value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("must be a single line")
	}
	return nil
}

// TextareaType accepts any string, including line breaks.
type TextareaType struct{}

func (t *TextareaType) Name() string { return string(domain.FieldTextarea) }

func (t *TextareaType) Validate(string) error { return nil }

// EmailType validates a bare e-mail address.
type EmailType struct{}

func (t *EmailType) Name() string { return string(domain.FieldEmail) }

func (t *EmailType) Validate(value string) error {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		return fmt.Errorf("must be a valid email address")
	}
	return nil
}

// DateType validates a YYYY-MM-DD date.
type DateType struct{}

func (t *DateType) Name() string { return string(domain.FieldDate) }

func (t *DateType) Validate(value string) error {
	if _, err := time.Parse(DateLayout, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	return nil
}

// RadioType validates membership in a fixed option list.
type RadioType struct {
	options []string
}

func (t *RadioType) Name() string {
	return fmt.Sprintf("radio[%s]", strings.Join(t.options, "|"))
}

func (t *RadioType) Validate(value string) error {
	if !slices.Contains(t.options, value) {
		return fmt.Errorf("must be one of: %s", strings.Join(t.options, ", "))
	}
	return nil
}

// Options returns the legal values.
func (t *RadioType) Options() []string {
	return slices.Clone(t.options)
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(string) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value string) error {
	return t.validate(value)
}

// --- Factory Functions ---

// Text creates a single-line text validator.
func Text() Type { return &TextType{} }

// Textarea creates a multi-line text validator.
func Textarea() Type { return &TextareaType{} }

// Email creates an e-mail validator.
func Email() Type { return &EmailType{} }

// Date creates an ISO date validator.
func Date() Type { return &DateType{} }

// Radio creates an option-membership validator.
func Radio(options ...string) Type {
	return &RadioType{options: slices.Clone(options)}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(string) error) Type {
	return &CustomType{name: name, validate: validate}
}

// ParseType converts a field type to a Type.
// Radio fields must carry at least one option.
func ParseType(ft domain.FieldType, options []string) (Type, error) {
	switch ft {
	case domain.FieldText, "":
		return Text(), nil
	case domain.FieldTextarea:
		return Textarea(), nil
	case domain.FieldEmail:
		return Email(), nil
	case domain.FieldDate:
		return Date(), nil
	case domain.FieldRadio:
		if len(options) == 0 {
			return nil, fmt.Errorf("radio field requires options")
		}
		return Radio(options...), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", ft)
	}
}
