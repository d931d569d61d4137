package domain

// TranscriptDiff represents the changes between two conversation snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type TranscriptDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Appended holds the turns added since the old snapshot.
	Appended []Turn `json:"appended,omitempty"`

	// Status is set when the Idle/Waiting flag changed.
	Status *Status `json:"status,omitempty"`
}

// DiffTranscript calculates the difference between oldConv and newConv.
// If oldConv is nil, the diff carries the entire transcript (initial load).
// Transcripts are append-only, so only the tail past the old length is compared.
func DiffTranscript(oldConv, newConv *Conversation) *TranscriptDiff {
	if newConv == nil {
		return nil
	}

	diff := &TranscriptDiff{SessionID: newConv.SessionID}

	if oldConv == nil || oldConv.Status != newConv.Status {
		status := newConv.Status
		diff.Status = &status
	}

	oldLen := 0
	if oldConv != nil {
		oldLen = len(oldConv.Turns)
	}
	if len(newConv.Turns) > oldLen {
		diff.Appended = append([]Turn(nil), newConv.Turns[oldLen:]...)
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *TranscriptDiff) IsEmpty() bool {
	return d.Status == nil && len(d.Appended) == 0
}
