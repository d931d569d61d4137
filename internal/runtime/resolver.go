package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// DefaultHelp is used when no help text is configured.
const DefaultHelp = "Sorry, I didn't understand that. Try: Book Service, Check Job Status, View Invoice, Make Payment."

// Resolver is the step cascade. It holds no conversation state and is safe for concurrent use.
type Resolver struct {
	catalog ports.FlowCatalog
	router  *Router
	help    string
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	rand *rand.Rand
}

// ResolverOption configures the Resolver.
type ResolverOption func(*Resolver)

// WithHelp sets the reply to unrecognized input.
func WithHelp(text string) ResolverOption {
	return func(r *Resolver) { r.help = text }
}

// WithRand sets the source used to synthesize references.
func WithRand(src rand.Source) ResolverOption {
	return func(r *Resolver) { r.rand = rand.New(src) }
}

// WithClock overrides the completion timestamp of records.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithResolverLogger configures a logger for the Resolver.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver over the flows of the catalog.
func NewResolver(catalog ports.FlowCatalog, opts ...ResolverOption) *Resolver {
	seed := uint64(time.Now().UnixNano())
	r := &Resolver{
		catalog: catalog,
		router:  NewRouter(catalog.List()),
		help:    DefaultHelp,
		logger:  logging.NewNop(),
		now:     time.Now,
		rand:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the cascade. First match wins:
//  1. a form submission prompts the first incomplete active step of its flow,
//  2. or, when every active step is complete, emits the terminal card;
//  3. free text enters the flow whose keyword it mentions;
//  4. anything else gets the help text.
func (r *Resolver) Resolve(ctx context.Context, msg domain.Message) (domain.Reply, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reply{}, err
	}

	if msg.Form != nil {
		return r.resolveForm(*msg.Form)
	}
	if draft, ok := domain.ParseSubmission(msg.Text); ok {
		return r.resolveForm(domain.FormSubmission{Values: draft})
	}

	if id, ok := r.router.Match(msg.Text); ok {
		flow, err := r.catalog.Get(id)
		if err != nil {
			return domain.Reply{}, err
		}
		r.logger.Debug("Routed free text", "flow", id)
		return r.Next(flow, domain.Draft{}), nil
	}

	r.logger.Debug("Unrecognized input")
	return domain.TextReply(r.help), nil
}

func (r *Resolver) resolveForm(sub domain.FormSubmission) (domain.Reply, error) {
	draft := sub.Draft()

	if sub.FlowID == "" {
		flow, ok := r.Infer(draft)
		if !ok {
			r.logger.Debug("Submitted draft matches no flow", "keys", draft.Keys())
			return domain.TextReply(r.help), nil
		}
		return r.Next(flow, draft), nil
	}

	flow, err := r.catalog.Get(sub.FlowID)
	if err != nil {
		return domain.Reply{}, err
	}
	if sub.StepID != "" {
		if _, ok := flow.Step(sub.StepID); !ok {
			return domain.Reply{}, fmt.Errorf("%w: %s/%s", domain.ErrUnknownStep, flow.ID, sub.StepID)
		}
	}
	return r.Next(flow, draft), nil
}

// Infer finds the flow a bare draft belongs to. See InferFlow.
func (r *Resolver) Infer(draft domain.Draft) (domain.Flow, bool) {
	return InferFlow(r.catalog, draft)
}

// InferFlow finds the flow a bare draft belongs to. A candidate flow must define
// every key of the draft and have its first active step complete. The candidate
// with the most completed active steps wins; ties go to catalog order.
func InferFlow(catalog ports.FlowCatalog, draft domain.Draft) (domain.Flow, bool) {
	if draft.Len() == 0 {
		return domain.Flow{}, false
	}
	var best domain.Flow
	bestDone, found := -1, false
	for _, f := range catalog.List() {
		if f.IsText() || !allIn(draft.Keys(), f.Keys()) {
			continue
		}
		active := f.ActiveSteps(draft)
		if len(active) == 0 || !active[0].Complete(draft) {
			continue
		}
		done := 0
		for _, s := range active {
			if s.Complete(draft) {
				done++
			}
		}
		if done > bestDone {
			best, bestDone, found = f, done, true
		}
	}
	return best, found
}

// OwnerOf returns the flow defining every key of draft when exactly one does.
// Unlike InferFlow it does not need any step to be complete, so it can place a
// form whose required answers are still missing.
func OwnerOf(catalog ports.FlowCatalog, draft domain.Draft) (domain.Flow, bool) {
	if draft.Len() == 0 {
		return domain.Flow{}, false
	}
	var owner domain.Flow
	n := 0
	for _, f := range catalog.List() {
		if !f.IsText() && allIn(draft.Keys(), f.Keys()) {
			owner = f
			n++
		}
	}
	return owner, n == 1
}

// Next returns the reply for a flow given the accumulated draft.
// It is a pure function of (flow, draft) apart from the synthesized reference.
func (r *Resolver) Next(flow domain.Flow, draft domain.Draft) domain.Reply {
	if flow.IsText() {
		return domain.TextReply(flow.Text)
	}

	active := flow.ActiveSteps(draft)
	for i, step := range active {
		if step.Complete(draft) {
			continue
		}
		carried := draft.Clone()
		step.Defaults.Each(func(k, v string) {
			if _, ok := carried.Get(k); !ok {
				carried.Set(k, v)
			}
		})
		return domain.PromptReply(domain.Prompt{
			FlowID:      flow.ID,
			StepID:      step.ID,
			Title:       step.Title,
			Fields:      slices.Clone(step.Fields),
			SubmitLabel: step.SubmitLabel,
			StepIndex:   i,
			StepCount:   len(active),
			Draft:       carried,
		})
	}

	ref := r.reference(flow)
	card := BuildCard(flow, draft, ref)
	rec := &domain.Record{
		FlowID:      flow.ID,
		Reference:   ref,
		Fields:      draft.Clone(),
		CompletedAt: r.now(),
	}
	return domain.CardReply(card, rec)
}

// reference synthesizes PREFIX-n with n drawn uniformly from the flow's digit range.
func (r *Resolver) reference(flow domain.Flow) string {
	digits := flow.Digits
	if digits <= 0 {
		digits = 3
	}
	lo := 1
	for range digits - 1 {
		lo *= 10
	}
	hi := lo*10 - 1
	if digits == 1 {
		lo = 0
	}

	r.mu.Lock()
	n := lo + r.rand.IntN(hi-lo+1)
	r.mu.Unlock()

	return fmt.Sprintf("%s-%d", flow.Prefix, n)
}

// BuildCard projects a completed draft onto the flow's card spec.
func BuildCard(flow domain.Flow, draft domain.Draft, ref string) domain.Card {
	spec := flow.Card
	title := spec.TitleFormat
	if strings.Contains(title, "%s") {
		title = fmt.Sprintf(title, ref)
	}
	card := domain.Card{
		FlowID:     flow.ID,
		Reference:  ref,
		Title:      title,
		Badge:      spec.Badge,
		LastUpdate: spec.LastUpdate,
		NextAction: spec.NextAction,
	}
	if spec.Progress != nil {
		p := *spec.Progress
		card.Progress = &p
	}
	for _, line := range spec.Lines {
		if text, ok := line.Render(draft); ok {
			card.Lines = append(card.Lines, text)
		}
	}
	if spec.Decorate != nil {
		spec.Decorate(draft, &card)
	}
	return card
}

func allIn(keys, set []string) bool {
	for _, k := range keys {
		if !slices.Contains(set, k) {
			return false
		}
	}
	return true
}
