package domain

// FormSubmission is the typed envelope of a completed form.
// It carries the draft as structured data so values never round-trip through display text.
type FormSubmission struct {
	FlowID string `json:"flow_id,omitempty"`
	StepID string `json:"step_id,omitempty"`
	// Carried is the draft the prompt was shown with.
	Carried Draft `json:"carried"`
	// Values are the answers for the prompt's fields.
	Values Draft `json:"values"`
}

// Draft merges the carried draft with the submitted values. Submitted values win.
func (f FormSubmission) Draft() Draft {
	return f.Carried.Merge(f.Values)
}

// Message is what the host submits to the resolver: free text or a form.
type Message struct {
	Text string          `json:"text,omitempty"`
	Form *FormSubmission `json:"form,omitempty"`
}

// TextMessage wraps a free-text utterance.
func TextMessage(text string) Message {
	return Message{Text: text}
}

// FormMessage wraps a form submission.
func FormMessage(f FormSubmission) Message {
	return Message{Form: &f}
}

// Display returns the transcript text of the user turn for this message.
func (m Message) Display() string {
	if m.Form != nil {
		return FormatSubmission(m.Form.Draft())
	}
	return m.Text
}
