package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
)

// Sink implements ports.RecordSink and ports.RecordLister in memory.
type Sink struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewSink creates an empty in-memory record sink.
func NewSink() *Sink {
	return &Sink{}
}

// Publish stores a copy of the record.
func (s *Sink) Publish(ctx context.Context, rec domain.Record) error {
	rec.Fields = rec.Fields.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns the records of a session, oldest first.
func (s *Sink) Records(ctx context.Context, sessionID string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Record
	for _, r := range s.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Record) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})
	return out, nil
}

// All returns every record in publish order.
func (s *Sink) All() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}
