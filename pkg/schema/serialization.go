package schema

import (
	"encoding/json"
	"errors"
)

type fieldErrorJSON struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

// MarshalJSON serializes the aggregate as a list of per-field failures.
func (e *AggregateError) MarshalJSON() ([]byte, error) {
	out := make([]fieldErrorJSON, 0, len(e.Errors))
	for _, err := range e.Errors {
		var ve *ValidationError
		if errors.As(err, &ve) {
			out = append(out, fieldErrorJSON{Field: ve.Key, Reason: ve.Reason, Value: ve.Value})
			continue
		}
		out = append(out, fieldErrorJSON{Reason: err.Error()})
	}
	return json.Marshal(map[string]any{"errors": out})
}

type fieldJSON struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// MarshalJSON serializes the schema as an ordered list of field names and type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw := make([]fieldJSON, len(s))
	for i, f := range s {
		name := ""
		if f.Type != nil {
			name = f.Type.Name()
		}
		raw[i] = fieldJSON{Name: f.Name, Type: name, Required: f.Required}
	}
	return json.Marshal(raw)
}
