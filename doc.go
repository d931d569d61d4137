/*
Package concierge is a conversational front-desk assistant for small-business ERPs.

A conversation is an append-only transcript of turns. The user either types free
text ("book service") or submits a form; the assistant answers with a text turn,
the next form prompt of a multi-step wizard, or a confirmation card once the
flow is complete. Every wizard is a domain.Flow: ordered steps of typed fields,
optional conditional steps and a card template.

# Architecture

The resolver is a pure function from the submitted message to a reply. It is
re-entrant: the draft carried by a form submission is the whole state of a flow,
so the next step is re-derived from it on every call. The session.Manager wraps
the resolver with per-session serialization, the Idle/Waiting cycle, persistence
(ports.ConversationStore) and record publication (ports.RecordSink).

# Usage

	assistant, err := concierge.New()
	if err != nil {
		log.Fatal(err)
	}

	sess, err := assistant.Open(ctx, concierge.NewSessionID())
	if err != nil {
		log.Fatal(err)
	}

	turn, err := sess.SubmitText(ctx, "book service")
	if err != nil {
		log.Fatal(err)
	}
	// turn.Form carries the first step of the service booking wizard.
	turn, err = sess.Answer(ctx, turn.ID, domain.NewDraft(
		"customerName", "Jane Doe",
		"phone", "+1 555 0100",
		// ...
	))

Adapters for Redis, SQLite, DynamoDB, HTTP and MCP live under pkg/adapters.
*/
package concierge
