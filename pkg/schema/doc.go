// Package schema provides the validation gate for wizard forms.
//
// A Schema is the ordered list of fields a Prompt asks for. Each field has a
// Type (text, email, date, textarea, radio) and a required flag. Submitted
// values are checked before anything reaches the resolver: a failing form
// produces an *AggregateError with one *ValidationError per field, and the
// conversation is left untouched.
//
// Basic usage:
//
//	s := schema.FromFields(prompt.Fields)
//	if err := schema.Validate(s, values); err != nil {
//	    for field, reason := range schema.FieldErrors(err) {
//	        // surface reason next to field
//	    }
//	}
//
// Custom validators can be registered for domain-specific rules:
//
//	plate := schema.Custom("plate", func(v string) error {
//	    if len(v) < 4 {
//	        return fmt.Errorf("too short")
//	    }
//	    return nil
//	})
//
// This package depends only on the domain models.
package schema
