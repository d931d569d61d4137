package domain

import (
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// PairSeparator separates key/value pairs in a serialized draft.
	PairSeparator = ", "
	// KeyValueSeparator separates a key from its value in a serialized draft.
	KeyValueSeparator = ": "
	// SubmissionPrefix marks a user turn that carries a serialized draft.
	SubmissionPrefix = "Submitted Form: "
)

// Draft is the accumulated answer set of an in-progress flow.
// Keys keep their insertion order; re-setting a key updates the value in place.
// The zero value is an empty draft ready to use. Copies of a Draft share storage,
// so Clone before mutating a draft that someone else holds.
type Draft struct {
	om *orderedmap.OrderedMap[string, string]
}

// NewDraft builds a draft from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewDraft(kv ...string) Draft {
	var d Draft
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

// DraftFromMap builds a draft from a plain map, ordering keys by the given field order
// first and appending any remaining keys in sorted order.
func DraftFromMap(values map[string]string, order []string) Draft {
	var d Draft
	seen := make(map[string]bool, len(values))
	for _, k := range order {
		if v, ok := values[k]; ok {
			d.Set(k, v)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(values))
	for k := range values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		d.Set(k, values[k])
	}
	return d
}

func (d *Draft) ensure() {
	if d.om == nil {
		d.om = orderedmap.New[string, string]()
	}
}

// Set stores a value. Existing keys keep their original position.
func (d *Draft) Set(key, value string) {
	d.ensure()
	d.om.Set(key, value)
}

// Get returns the value for key and whether it was present.
func (d Draft) Get(key string) (string, bool) {
	if d.om == nil {
		return "", false
	}
	return d.om.Get(key)
}

// Value returns the value for key, or "" when absent.
func (d Draft) Value(key string) string {
	v, _ := d.Get(key)
	return v
}

// Has reports whether key is present with a non-blank value.
func (d Draft) Has(key string) bool {
	v, ok := d.Get(key)
	return ok && strings.TrimSpace(v) != ""
}

// Len returns the number of keys.
func (d Draft) Len() int {
	if d.om == nil {
		return 0
	}
	return d.om.Len()
}

// Keys returns the keys in insertion order.
func (d Draft) Keys() []string {
	keys := make([]string, 0, d.Len())
	d.Each(func(k, _ string) {
		keys = append(keys, k)
	})
	return keys
}

// Each calls fn for every pair in insertion order.
func (d Draft) Each(fn func(key, value string)) {
	if d.om == nil {
		return
	}
	for pair := d.om.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Map returns a plain copy of the draft.
func (d Draft) Map() map[string]string {
	out := make(map[string]string, d.Len())
	d.Each(func(k, v string) {
		out[k] = v
	})
	return out
}

// Clone returns an independent copy of the draft.
func (d Draft) Clone() Draft {
	var c Draft
	d.Each(func(k, v string) {
		c.Set(k, v)
	})
	return c
}

// Merge returns a new draft holding d followed by other; values in other win on collision.
func (d Draft) Merge(other Draft) Draft {
	out := d.Clone()
	other.Each(func(k, v string) {
		out.Set(k, v)
	})
	return out
}

// Equal reports whether both drafts hold the same pairs in the same order.
func (d Draft) Equal(other Draft) bool {
	if d.Len() != other.Len() {
		return false
	}
	a, b := d.Keys(), other.Keys()
	for i := range a {
		if a[i] != b[i] || d.Value(a[i]) != other.Value(b[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the draft as a JSON object preserving key order.
func (d Draft) MarshalJSON() ([]byte, error) {
	if d.om == nil {
		return []byte("{}"), nil
	}
	return d.om.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (d *Draft) UnmarshalJSON(data []byte) error {
	d.om = orderedmap.New[string, string]()
	return d.om.UnmarshalJSON(data)
}

// Serialize renders the draft as "k1: v1, k2: v2" in insertion order.
func Serialize(d Draft) string {
	var b strings.Builder
	first := true
	d.Each(func(k, v string) {
		if !first {
			b.WriteString(PairSeparator)
		}
		first = false
		b.WriteString(k)
		b.WriteString(KeyValueSeparator)
		b.WriteString(v)
	})
	return b.String()
}

// Deserialize parses the output of Serialize.
// Segments without a key/value separator, or with an empty key, are dropped silently.
func Deserialize(s string) Draft {
	var d Draft
	if strings.TrimSpace(s) == "" {
		return d
	}
	for _, segment := range strings.Split(s, PairSeparator) {
		key, value, ok := strings.Cut(segment, KeyValueSeparator)
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "" {
			continue
		}
		d.Set(key, value)
	}
	return d
}

// FormatSubmission renders the display text of a user turn that submits a form.
func FormatSubmission(d Draft) string {
	return SubmissionPrefix + Serialize(d)
}

// ParseSubmission recognises a "Submitted Form: ..." utterance (case-insensitive prefix)
// and returns the draft it carries.
func ParseSubmission(s string) (Draft, bool) {
	trimmed := strings.TrimSpace(s)
	prefix := strings.TrimSpace(SubmissionPrefix)
	if len(trimmed) < len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return Draft{}, false
	}
	return Deserialize(strings.TrimSpace(trimmed[len(prefix):])), true
}
