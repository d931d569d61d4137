package schema

import (
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
)

// Field is one validated input.
type Field struct {
	Name     string
	Type     Type
	Required bool
}

// Schema is the ordered list of fields a form accepts.
type Schema []Field

// FromFields builds a schema from prompt field specs.
// An unparseable field type degrades to Text so a bad definition never blocks input;
// use Check to catch those at build time.
func FromFields(specs []domain.FieldSpec) Schema {
	s := make(Schema, 0, len(specs))
	for _, spec := range specs {
		t, err := ParseType(spec.Type, spec.Options)
		if err != nil {
			t = Text()
		}
		s = append(s, Field{Name: spec.Name, Type: t, Required: spec.Required})
	}
	return s
}

// Check verifies that field specs are well formed: unique non-empty names,
// known types, and options present iff the field is a radio.
func Check(specs []domain.FieldSpec) error {
	var errs []error
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			errs = append(errs, &ValidationError{Key: spec.Label, Reason: "field name is empty"})
			continue
		}
		if seen[spec.Name] {
			errs = append(errs, &ValidationError{Key: spec.Name, Reason: "duplicate field name"})
		}
		seen[spec.Name] = true
		if _, err := ParseType(spec.Type, spec.Options); err != nil {
			errs = append(errs, &ValidationError{Key: spec.Name, Reason: err.Error()})
		}
		if spec.Type != domain.FieldRadio && len(spec.Options) > 0 {
			errs = append(errs, &ValidationError{Key: spec.Name, Reason: "options are only allowed on radio fields"})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Validate checks submitted values against the schema.
// Required fields must be non-blank; non-blank values must satisfy their Type;
// values for fields the schema does not define are rejected.
// Returns an *AggregateError with all failures found, in schema order.
func Validate(s Schema, values domain.Draft) error {
	var errs []error

	known := make(map[string]bool, len(s))
	for _, f := range s {
		known[f.Name] = true
		value := values.Value(f.Name)
		if strings.TrimSpace(value) == "" {
			if f.Required {
				errs = append(errs, &ValidationError{Key: f.Name, Reason: "required"})
			}
			continue
		}
		if err := f.Type.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: f.Name, Reason: err.Error(), Value: value})
		}
	}

	values.Each(func(k, v string) {
		if !known[k] {
			errs = append(errs, &ValidationError{Key: k, Reason: "not defined in form", Value: v})
		}
	})

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidateFields validates only the named fields.
// Naming a field the schema does not define is an error.
func ValidateFields(s Schema, values domain.Draft, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	subset := make(Schema, 0, len(fields))
	var errs []error
	for _, name := range fields {
		f, ok := s.Field(name)
		if !ok {
			errs = append(errs, &ValidationError{Key: name, Reason: "not defined in schema"})
			continue
		}
		subset = append(subset, f)
	}
	if err := Validate(subset, pick(values, fields)); err != nil {
		errs = append(errs, ValidationErrors(err)...)
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		req := ""
		if f.Required {
			req = "*"
		}
		parts[i] = fmt.Sprintf("%s%s:%s", f.Name, req, f.Type.Name())
	}
	return strings.Join(parts, " ")
}

func pick(values domain.Draft, keys []string) domain.Draft {
	var out domain.Draft
	for _, k := range keys {
		if v, ok := values.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}
