package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
)

// CancelCommand abandons the form being filled.
const CancelCommand = "/cancel"

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Cards    CardRenderer
	Filler   FormFiller

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerCards configures the card renderer.
func WithTextHandlerCards(cards CardRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Cards = cards
	}
}

// WithTextHandlerFiller replaces line-by-line field prompts.
func WithTextHandlerFiller(filler FormFiller) TextHandlerOption {
	return func(h *TextHandler) {
		h.Filler = filler
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor ctx.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) readLine(ctx context.Context, prompt string) (string, error) {
	h.initPump()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		fmt.Fprint(h.Writer, prompt)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	return h.readLine(ctx, "> ")
}

func (h *TextHandler) Output(ctx context.Context, turn domain.Turn) error {
	switch {
	case turn.Role == domain.RoleUser:
		fmt.Fprintf(h.Writer, "> %s\n", turn.Content)
	case turn.Presentation == domain.PresentCard && turn.Card != nil:
		fmt.Fprintln(h.Writer, h.renderCard(*turn.Card))
	case turn.Presentation == domain.PresentForm && turn.Form != nil:
		p := turn.Form
		fmt.Fprintf(h.Writer, "%s  (step %d of %d)\n", p.Title, p.StepIndex+1, p.StepCount)
	default:
		output := turn.Content
		if h.Renderer != nil {
			if rendered, err := h.Renderer(output); err == nil {
				output = rendered
			}
		}
		fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	}
	return nil
}

func (h *TextHandler) renderCard(c domain.Card) string {
	if h.Cards != nil {
		return h.Cards(c)
	}
	return PlainCard(c)
}

// Fill asks every field on its own line. Radio options can be picked by number.
// A blank optional answer is skipped; CancelCommand abandons the form.
func (h *TextHandler) Fill(ctx context.Context, prompt domain.Prompt) (domain.Draft, error) {
	if h.Filler != nil {
		return h.Filler(ctx, prompt)
	}

	var values domain.Draft
	for _, f := range prompt.Fields {
		label := f.Label
		if f.Type == domain.FieldRadio {
			for i, opt := range f.Options {
				fmt.Fprintf(h.Writer, "  %d) %s\n", i+1, opt)
			}
		}
		if f.Placeholder != "" {
			label += " (e.g. " + f.Placeholder + ")"
		}
		if f.Required {
			label += " *"
		}

		answer, err := h.readLine(ctx, label+": ")
		if err != nil {
			return domain.Draft{}, err
		}
		if answer == CancelCommand {
			return domain.Draft{}, ErrFormCancelled
		}
		if answer == "" && !f.Required {
			continue
		}
		values.Set(f.Name, pickOption(f, answer))
	}
	return values, nil
}

func pickOption(f domain.FieldSpec, answer string) string {
	if f.Type != domain.FieldRadio {
		return answer
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(f.Options) {
		return f.Options[n-1]
	}
	for _, opt := range f.Options {
		if strings.EqualFold(opt, answer) {
			return opt
		}
	}
	return answer
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return nil
}

// PlainCard renders a card without styling.
func PlainCard(c domain.Card) string {
	var b strings.Builder
	b.WriteString(c.Title)
	if c.Badge != "" {
		fmt.Fprintf(&b, " [%s]", c.Badge)
	}
	for _, line := range c.Lines {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	if c.Progress != nil {
		fmt.Fprintf(&b, "\n  Progress: %d%%", *c.Progress)
	}
	if c.LastUpdate != "" {
		b.WriteString("\n  " + c.LastUpdate)
	}
	if c.NextAction != "" {
		b.WriteString("\n  Next: " + c.NextAction)
	}
	return b.String()
}
