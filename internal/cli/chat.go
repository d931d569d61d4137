package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/presentation/tui"
	"github.com/aretw0/concierge/pkg/runner"
)

// DefaultAliases are shortcuts accepted at the chat prompt.
var DefaultAliases = map[string]string{
	"?": "menu",
	"m": "menu",
}

// ChatOptions configures an interactive chat session.
type ChatOptions struct {
	SessionID string
	// Fresh deletes the session before starting.
	Fresh bool
	// JSON switches to JSON-Lines IO.
	JSON bool
	// Rich enables markdown rendering, styled cards and huh forms.
	Rich  bool
	Quiet bool

	In  io.Reader
	Out io.Writer
}

// Chat runs the chat loop of one session until EOF, exit or cancellation.
// An existing session is replayed before the prompt.
func Chat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = concierge.NewSessionID()
	}

	manager := app.Assistant.Manager()
	if opts.Fresh {
		if err := manager.Delete(ctx, opts.SessionID); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}
	turns, err := manager.Turns(ctx, opts.SessionID)
	if err != nil {
		return err
	}
	resumed := len(turns) > 0

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		hopts := []runner.TextHandlerOption{}
		if opts.Rich {
			hopts = append(hopts,
				runner.WithTextHandlerRenderer(tui.NewRenderer()),
				runner.WithTextHandlerCards(tui.RenderCard),
				runner.WithTextHandlerFiller(tui.FillForm),
			)
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, hopts...)
	}

	if !opts.JSON && !opts.Quiet {
		tui.PrintBanner(opts.Out)
		if resumed {
			fmt.Fprintf(opts.Out, ">>> Resuming session '%s' (%d turns).\n", opts.SessionID, len(turns))
		} else {
			fmt.Fprintf(opts.Out, ">>> Session '%s' active.\n", opts.SessionID)
		}
	}
	app.Logger.Info("Chat started", "session_id", opts.SessionID, "resumed", resumed)

	r := runner.NewRunner(manager,
		runner.WithSessionID(opts.SessionID),
		runner.WithInputHandler(handler),
		runner.WithLogger(app.Logger),
		runner.WithReplay(resumed),
		runner.WithInterceptor(runner.MultiInterceptor(
			runner.SanitizeMiddleware(),
			runner.AliasMiddleware(DefaultAliases),
		)),
	)
	err = r.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
