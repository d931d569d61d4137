package domain

import "time"

// Status is the Conversation Store state.
type Status string

const (
	StatusIdle    Status = "idle"    // No resolve call outstanding
	StatusWaiting Status = "waiting" // One resolve call outstanding
)

// Conversation is the runtime snapshot of one session: an append-only transcript
// plus the Idle/Waiting flag.
type Conversation struct {
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`
	Turns     []Turn `json:"turns"`

	// LastTurnID backs the strictly increasing ID sequence.
	LastTurnID int64 `json:"last_turn_id"`

	// PendingSince is set while Status == StatusWaiting.
	PendingSince *time.Time `json:"pending_since,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds the encrypted conversation when the store sits behind an
	// encryption middleware. Turns are empty in that case.
	Sealed string `json:"sealed,omitempty"`
}

// NewConversation creates an empty, idle conversation.
func NewConversation(sessionID string) *Conversation {
	return &Conversation{
		SessionID: sessionID,
		Status:    StatusIdle,
		Turns:     []Turn{},
	}
}

// Busy reports whether a resolve call is outstanding.
func (c *Conversation) Busy() bool {
	return c.Status == StatusWaiting
}

// Append assigns the next ID to t and adds it to the transcript.
// IDs are derived from t.CreatedAt but never go backwards.
func (c *Conversation) Append(t Turn) Turn {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	id := t.CreatedAt.UnixNano()
	if id <= c.LastTurnID {
		id = c.LastTurnID + 1
	}
	t.ID = id
	c.LastTurnID = id
	c.Turns = append(c.Turns, t)
	c.UpdatedAt = t.CreatedAt
	return t
}

// Turn looks up a turn by ID.
func (c *Conversation) Turn(id int64) (Turn, bool) {
	for _, t := range c.Turns {
		if t.ID == id {
			return t, true
		}
	}
	return Turn{}, false
}

// Wait transitions Idle -> Waiting.
func (c *Conversation) Wait(now time.Time) {
	c.Status = StatusWaiting
	c.PendingSince = &now
	c.UpdatedAt = now
}

// Settle transitions Waiting -> Idle.
func (c *Conversation) Settle(now time.Time) {
	c.Status = StatusIdle
	c.PendingSince = nil
	c.UpdatedAt = now
}

// Stale reports whether the conversation has been waiting longer than limit.
// A limit of zero or less never expires: with no resolve timeout there is no
// point after which a pending submission is known to be lost.
func (c *Conversation) Stale(now time.Time, limit time.Duration) bool {
	if limit <= 0 || c.Status != StatusWaiting || c.PendingSince == nil {
		return false
	}
	return now.Sub(*c.PendingSince) > limit
}

// Snapshot returns a copy whose transcript can be appended to independently.
func (c *Conversation) Snapshot() *Conversation {
	cp := *c
	cp.Turns = make([]Turn, len(c.Turns))
	copy(cp.Turns, c.Turns)
	if c.PendingSince != nil {
		ts := *c.PendingSince
		cp.PendingSince = &ts
	}
	return &cp
}
