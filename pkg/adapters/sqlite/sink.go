package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
)

// Sink appends completed-flow records to the records table.
type Sink struct {
	db *sql.DB
}

// NewSink wraps an open database (see Open).
func NewSink(db *sql.DB) *Sink {
	return &Sink{db: db}
}

// Publish inserts the record.
func (s *Sink) Publish(ctx context.Context, rec domain.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal record fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (session_id, flow_id, reference, fields, completed_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.FlowID, rec.Reference, string(fields), rec.CompletedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("publishing record %s: %w", rec.Reference, err)
	}
	return nil
}

// Records returns the records of a session, oldest first.
func (s *Sink) Records(ctx context.Context, sessionID string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id, reference, fields, completed_at FROM records
		WHERE session_id = ? ORDER BY completed_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var (
			rec    = domain.Record{SessionID: sessionID}
			fields string
			nanos  int64
		)
		if err := rows.Scan(&rec.FlowID, &rec.Reference, &fields, &nanos); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decoding record %s: %w", rec.Reference, err)
		}
		rec.CompletedAt = time.Unix(0, nanos).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
