package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// RecordSink receives the confirmation record of every completed flow.
// The engine emits records, and the host decides where they go (a table, a queue, nowhere).
type RecordSink interface {
	Publish(ctx context.Context, rec domain.Record) error
}

// RecordLister is implemented by sinks that can read back what they stored.
type RecordLister interface {
	// Records returns the records of a session, oldest first.
	Records(ctx context.Context, sessionID string) ([]domain.Record, error)
}

// RecordSinkFunc adapts a function to a RecordSink.
type RecordSinkFunc func(ctx context.Context, rec domain.Record) error

// Publish calls f.
func (f RecordSinkFunc) Publish(ctx context.Context, rec domain.Record) error {
	return f(ctx, rec)
}
