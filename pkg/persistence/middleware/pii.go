package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Mask replaces every masked value.
const Mask = "***"

// DefaultPIIPatterns match the contact and payment fields of the built-in flows.
var DefaultPIIPatterns = []string{`(?i)phone`, `(?i)email`, `(?i)card`, `(?i)plate`}

type piiMiddleware struct {
	next     ports.RecordSink
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a sink middleware that masks record fields whose key
// matches one of the patterns before the record leaves the process.
func NewPIIMiddleware(patternStrings []string) (SinkMiddleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RecordSink) ports.RecordSink {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Publish(ctx context.Context, rec domain.Record) error {
	// Build a fresh draft so the caller's record is left untouched.
	var masked domain.Draft
	rec.Fields.Each(func(k, v string) {
		if m.matches(k) {
			v = Mask
		}
		masked.Set(k, v)
	})
	rec.Fields = masked
	return m.next.Publish(ctx, rec)
}

// Records passes through when the wrapped sink can list.
func (m *piiMiddleware) Records(ctx context.Context, sessionID string) ([]domain.Record, error) {
	lister, ok := m.next.(ports.RecordLister)
	if !ok {
		return nil, nil
	}
	return lister.Records(ctx, sessionID)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
