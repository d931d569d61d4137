package domain

// ReplyKind identifies which payload a Reply carries.
type ReplyKind string

const (
	ReplyText   ReplyKind = "text"
	ReplyPrompt ReplyKind = "prompt"
	ReplyCard   ReplyKind = "card"
)

// Reply is what the resolver hands back to the host: a Prompt, a Card, or plain Text.
type Reply struct {
	Kind   ReplyKind `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Prompt *Prompt   `json:"prompt,omitempty"`
	Card   *Card     `json:"card,omitempty"`
	// Record is set when the reply terminates a flow.
	Record *Record `json:"record,omitempty"`
}

// TextReply wraps plain text.
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// PromptReply wraps a prompt.
func PromptReply(p Prompt) Reply {
	return Reply{Kind: ReplyPrompt, Prompt: &p}
}

// CardReply wraps a terminal card and the record it confirms.
func CardReply(c Card, rec *Record) Reply {
	return Reply{Kind: ReplyCard, Card: &c, Record: rec}
}

// FlowID returns the flow the reply belongs to, if any.
func (r Reply) FlowID() string {
	switch {
	case r.Prompt != nil:
		return r.Prompt.FlowID
	case r.Card != nil:
		return r.Card.FlowID
	}
	return ""
}
