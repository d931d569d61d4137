package domain

import "time"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Presentation determines which payload drives the rendered body of a turn.
type Presentation string

const (
	PresentText Presentation = "text"
	PresentForm Presentation = "form"
	PresentCard Presentation = "card"
)

// Turn is one entry in the conversation transcript.
// Turns are created once and never mutated.
type Turn struct {
	// ID is strictly increasing within a session.
	ID           int64        `json:"id"`
	Role         Role         `json:"role"`
	Content      string       `json:"content,omitempty"`
	Presentation Presentation `json:"presentation"`
	// Form is present iff Presentation == PresentForm.
	Form *Prompt `json:"form,omitempty"`
	// Card is present iff Presentation == PresentCard.
	Card *Card `json:"card,omitempty"`
	// CreatedAt is for display only; ordering is insertion order.
	CreatedAt time.Time `json:"created_at"`
}
