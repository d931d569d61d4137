package domain

import "time"

// Record is the confirmation of a completed flow.
// It is what a real backend would persist (a booking, a lead, an invoice).
type Record struct {
	FlowID      string    `json:"flow_id"`
	Reference   string    `json:"reference"`
	SessionID   string    `json:"session_id,omitempty"`
	Fields      Draft     `json:"fields"`
	CompletedAt time.Time `json:"completed_at"`
}
