package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/runner"
)

// ListSessions prints every stored session with its status and turn count.
func ListSessions(ctx context.Context, app *App, w io.Writer) error {
	manager := app.Assistant.Manager()
	ids, err := manager.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATUS\tTURNS\tUPDATED")
	for _, id := range ids {
		conv, err := manager.Load(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\n", id, "unreadable")
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, conv.Status, len(conv.Turns), conv.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// ShowSession prints a transcript, as JSON or as the chat would render it.
// Records of completed flows follow when the sink can list them.
func ShowSession(ctx context.Context, app *App, id string, asJSON bool, w io.Writer) error {
	manager := app.Assistant.Manager()
	conv, err := manager.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", id, err)
	}

	var records []domain.Record
	if app.Records != nil {
		if records, err = app.Records.Records(ctx, id); err != nil {
			app.Logger.Warn("Failed to list records", "session_id", id, "error", err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*domain.Conversation
			Records []domain.Record `json:"records,omitempty"`
		}{conv, records})
	}

	h := runner.NewTextHandler(nil, w)
	fmt.Fprintf(w, "Session %s (%s)\n", conv.SessionID, conv.Status)
	for _, t := range conv.Turns {
		if err := h.Output(ctx, t); err != nil {
			return err
		}
	}
	for _, rec := range records {
		fmt.Fprintf(w, "Record %s [%s] %s\n", rec.Reference, rec.FlowID, domain.Serialize(rec.Fields))
	}
	return nil
}

// RemoveSessions deletes the given sessions, reporting each one.
func RemoveSessions(ctx context.Context, app *App, ids []string, w io.Writer) error {
	manager := app.Assistant.Manager()
	var failed int
	for _, id := range ids {
		if err := manager.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions could not be removed", failed, len(ids))
	}
	return nil
}
