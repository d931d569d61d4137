package runtime_test

import (
	"context"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/internal/flows"
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
)

func newResolver(t *testing.T) *runtime.Resolver {
	t.Helper()
	reg, err := registry.NewRegistry(flows.Catalog()...)
	require.NoError(t, err)
	return runtime.NewResolver(reg,
		runtime.WithHelp(flows.Help),
		runtime.WithRand(rand.NewPCG(1, 2)),
		runtime.WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func resolve(t *testing.T, r *runtime.Resolver, msg domain.Message) domain.Reply {
	t.Helper()
	reply, err := r.Resolve(context.Background(), msg)
	require.NoError(t, err)
	return reply
}

func submit(p *domain.Prompt, kv ...string) domain.Message {
	return domain.FormMessage(domain.FormSubmission{
		FlowID:  p.FlowID,
		StepID:  p.StepID,
		Carried: p.Draft,
		Values:  domain.NewDraft(kv...),
	})
}

func TestResolve_BookingScenario(t *testing.T) {
	r := newResolver(t)

	first := resolve(t, r, domain.TextMessage("Book Service"))
	require.Equal(t, domain.ReplyPrompt, first.Kind)
	require.NotNil(t, first.Prompt)
	assert.Equal(t, "service_booking", first.Prompt.FlowID)
	assert.Equal(t, []string{"customerName", "phone", "vehicleMake", "vehicleModel", "plateNumber"},
		fieldNames(first.Prompt))
	assert.Equal(t, 0, first.Prompt.StepIndex)
	assert.Equal(t, 2, first.Prompt.StepCount)

	second := resolve(t, r, submit(first.Prompt,
		"customerName", "John Doe",
		"phone", "+1 555",
		"vehicleMake", "Toyota",
		"vehicleModel", "Camry",
		"plateNumber", "ABC-1234",
	))
	require.NotNil(t, second.Prompt)
	assert.Equal(t, []string{"serviceType", "preferredDate", "preferredTime", "notes"}, fieldNames(second.Prompt))
	assert.Equal(t, 1, second.Prompt.StepIndex)
	assert.Equal(t, 50, second.Prompt.Progress())
	assert.Equal(t, "John Doe", second.Prompt.Draft.Value("customerName"))

	final := resolve(t, r, submit(second.Prompt,
		"serviceType", "Oil Change",
		"preferredDate", "2024-06-01",
		"preferredTime", "Morning (8AM-12PM)",
	))
	require.Equal(t, domain.ReplyCard, final.Kind)
	require.NotNil(t, final.Card)
	assert.Regexp(t, regexp.MustCompile(`^✅ Booking Confirmed: BK-\d{4}$`), final.Card.Title)
	assert.Equal(t, "Confirmed", final.Card.Badge)
	assert.Equal(t, []string{
		"Customer: John Doe",
		"Phone: +1 555",
		"Vehicle: Toyota Camry",
		"Plate: ABC-1234",
		"Service: Oil Change",
		"Date & Time: 2024-06-01 Morning (8AM-12PM)",
	}, final.Card.Lines)

	require.NotNil(t, final.Record)
	assert.Equal(t, final.Card.Reference, final.Record.Reference)
	assert.Equal(t, "service_booking", final.Record.FlowID)
	assert.Equal(t, "Oil Change", final.Record.Fields.Value("serviceType"))
}

func TestResolve_LegacySubmissionText(t *testing.T) {
	r := newResolver(t)
	reply := resolve(t, r, domain.TextMessage(
		"Submitted Form: customerName: John Doe, phone: +1 555, vehicleMake: Toyota, vehicleModel: Camry, plateNumber: ABC-1234"))
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, "service_booking", reply.Prompt.FlowID)
	assert.Equal(t, "service_schedule", reply.Prompt.StepID)
}

func TestResolve_UnrecognizedInput(t *testing.T) {
	r := newResolver(t)
	reply := resolve(t, r, domain.TextMessage("asdkjasd"))
	require.Equal(t, domain.ReplyText, reply.Kind)
	for _, action := range []string{"Book Service", "Check Job Status", "View Invoice", "Make Payment"} {
		assert.Contains(t, reply.Text, action)
	}

	// A legacy submission that fits no flow is unrecognized too.
	reply = resolve(t, r, domain.TextMessage("Submitted Form: favouriteColour: blue"))
	assert.Equal(t, flows.Help, reply.Text)
}

func TestResolve_MainMenu(t *testing.T) {
	r := newResolver(t)
	for _, in := range []string{"hi", "Hello!", "MENU", "help me"} {
		reply := resolve(t, r, domain.TextMessage(in))
		assert.Equal(t, domain.ReplyText, reply.Kind, in)
		assert.Contains(t, reply.Text, "Visa Consultation", in)
	}
	// "hi" inside another word is not a greeting.
	assert.Equal(t, flows.Help, resolve(t, r, domain.TextMessage("this")).Text)
}

func TestResolve_SingleWordKeywordsNeedWholeInput(t *testing.T) {
	r := newResolver(t)
	for _, in := range []string{"just in case", "what is the status of my car", "I will pay later", "book it"} {
		assert.Equal(t, flows.Help, resolve(t, r, domain.TextMessage(in)).Text, in)
	}
	reply := resolve(t, r, domain.TextMessage("Case"))
	require.Equal(t, domain.ReplyPrompt, reply.Kind)
	assert.Equal(t, "case_create", reply.Prompt.FlowID)
}

func TestResolve_KeywordRouting(t *testing.T) {
	r := newResolver(t)
	tests := map[string]string{
		"I want to book a service":    "service_booking",
		"check job status please":     "job_status",
		"view invoice":                "invoice_view",
		"create invoice for a client": "invoice_create",
		"make payment":                "payment",
		"pay invoice":                 "payment",
		"inventory":                   "inventory_check",
		"Purchase Order":              "purchase_order",
		"new lead":                    "lead_create",
		"open a new case":             "case_create",
		"visa consultation":           "visa_consultation",
	}
	for in, want := range tests {
		reply := resolve(t, r, domain.TextMessage(in))
		require.NotNil(t, reply.Prompt, in)
		assert.Equal(t, want, reply.Prompt.FlowID, in)
		assert.Equal(t, 0, reply.Prompt.StepIndex, in)
	}
}

func TestResolve_GuardOrderingIsDeterministic(t *testing.T) {
	r := newResolver(t)
	draft := domain.NewDraft("visa", "Student", "country", "Canada")
	msg := domain.FormMessage(domain.FormSubmission{Values: draft})

	for range 5 {
		reply := resolve(t, r, msg)
		require.NotNil(t, reply.Prompt)
		assert.Equal(t, "visa_consultation", reply.Prompt.FlowID)
		assert.Equal(t, "contact", reply.Prompt.StepID, "visa+country must never fall back to the country step")
		assert.Equal(t, 2, reply.Prompt.StepIndex)
		assert.Equal(t, 3, reply.Prompt.StepCount)
	}
}

func TestResolve_DraftGrowsMonotonically(t *testing.T) {
	r := newResolver(t)
	answers := map[string][]string{
		"client":   {"clientName", "Ana Lima", "clientEmail", "ana@example.com"},
		"matter":   {"caseType", "Immigration", "caseTitle", "Work permit appeal"},
		"schedule": {"filingDate", "2024-07-01", "priority", "High"},
	}

	reply := resolve(t, r, domain.TextMessage("new case"))
	var prev []string
	steps := 0
	for reply.Prompt != nil {
		keys := reply.Prompt.Draft.Keys()
		for _, k := range prev {
			assert.Contains(t, keys, k)
		}
		prev = keys
		kv, ok := answers[reply.Prompt.StepID]
		require.True(t, ok, "unexpected step %s", reply.Prompt.StepID)
		reply = resolve(t, r, submit(reply.Prompt, kv...))
		steps++
	}
	assert.Equal(t, 3, steps)
	require.NotNil(t, reply.Card)
	assert.Regexp(t, `^⚖️ Case Opened: CASE-\d{3}$`, reply.Card.Title)
	// Defaults from the last step travel into the record.
	assert.Equal(t, "Open", reply.Record.Fields.Value("caseStatus"))
}

func TestResolve_TerminalDoesNotLoop(t *testing.T) {
	r := newResolver(t)
	complete := domain.NewDraft(
		"customerName", "John Doe", "phone", "+1 555", "vehicleMake", "Toyota",
		"vehicleModel", "Camry", "plateNumber", "ABC-1234",
		"serviceType", "Oil Change", "preferredDate", "2024-06-01", "preferredTime", "Morning (8AM-12PM)",
	)
	for _, msg := range []domain.Message{
		domain.FormMessage(domain.FormSubmission{FlowID: "service_booking", Values: complete}),
		domain.FormMessage(domain.FormSubmission{Values: complete}),
		domain.TextMessage(domain.FormatSubmission(complete)),
	} {
		reply := resolve(t, r, msg)
		assert.Equal(t, domain.ReplyCard, reply.Kind)
		assert.Nil(t, reply.Prompt)
	}
}

func TestResolve_PaymentBranches(t *testing.T) {
	r := newResolver(t)

	start := resolve(t, r, domain.TextMessage("make payment"))
	require.NotNil(t, start.Prompt)
	assert.Equal(t, 2, start.Prompt.StepCount, "conditional steps are not counted until they apply")

	card := resolve(t, r, submit(start.Prompt, "invoiceRef", "INV-001", "amount", "120.00", "method", "Card"))
	require.NotNil(t, card.Prompt)
	assert.Equal(t, "card_details", card.Prompt.StepID)
	assert.Equal(t, 3, card.Prompt.StepCount)

	cash := resolve(t, r, submit(start.Prompt, "invoiceRef", "INV-001", "amount", "120.00", "method", "Cash"))
	require.NotNil(t, cash.Prompt)
	assert.Equal(t, "receipt", cash.Prompt.StepID)
	assert.Equal(t, 1, cash.Prompt.StepIndex)
	assert.Equal(t, "USD", cash.Prompt.Draft.Value("currency"), "step defaults are carried")

	done := resolve(t, r, submit(cash.Prompt, "payerEmail", "ana@example.com"))
	require.NotNil(t, done.Card)
	assert.Contains(t, done.Card.Lines, "Amount: 120.00 USD")
	assert.Equal(t, "Paid", done.Card.Badge)
}

func TestResolve_DefaultsDoNotOverwrite(t *testing.T) {
	r := newResolver(t)
	reply := resolve(t, r, domain.FormMessage(domain.FormSubmission{
		FlowID: "payment",
		Values: domain.NewDraft("invoiceRef", "INV-9", "amount", "5", "method", "Cash", "currency", "EUR"),
	}))
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, "EUR", reply.Prompt.Draft.Value("currency"))
}

func TestResolve_Errors(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve(context.Background(), domain.FormMessage(domain.FormSubmission{FlowID: "nope"}))
	assert.ErrorIs(t, err, domain.ErrUnknownFlow)

	_, err = r.Resolve(context.Background(), domain.FormMessage(domain.FormSubmission{FlowID: "payment", StepID: "nope"}))
	assert.ErrorIs(t, err, domain.ErrUnknownStep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, domain.TextMessage("hi"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_JobStatusIsStable(t *testing.T) {
	r := newResolver(t)
	msg := domain.FormMessage(domain.FormSubmission{FlowID: "job_status", Values: domain.NewDraft("jobNumber", "JOB-123")})
	a := resolve(t, r, msg)
	b := resolve(t, r, msg)
	require.NotNil(t, a.Card)
	require.NotNil(t, a.Card.Progress)
	assert.Equal(t, a.Card.Badge, b.Card.Badge)
	assert.Equal(t, *a.Card.Progress, *b.Card.Progress)
}

func TestInfer(t *testing.T) {
	r := newResolver(t)

	f, ok := r.Infer(domain.NewDraft("firstName", "Ana", "lastName", "Lima", "email", "ana@example.com"))
	require.True(t, ok)
	assert.Equal(t, "lead_create", f.ID)

	_, ok = r.Infer(domain.NewDraft("email", "ana@example.com"))
	assert.False(t, ok)

	_, ok = r.Infer(domain.Draft{})
	assert.False(t, ok)
}

// staticCatalog serves flows without the registry's definition checks.
type staticCatalog []domain.Flow

func (c staticCatalog) Get(id string) (domain.Flow, error) {
	for _, f := range c {
		if f.ID == id {
			return f, nil
		}
	}
	return domain.Flow{}, domain.ErrUnknownFlow
}

func (c staticCatalog) List() []domain.Flow { return c }

func TestInferFlow_SkipsInactiveSteps(t *testing.T) {
	trade := domain.Flow{
		ID: "trade_in",
		Steps: []domain.Step{
			{
				ID:     "dealer",
				Fields: []domain.FieldSpec{{Name: "dealerCode", Type: domain.FieldText, Required: true}},
				When:   &domain.Condition{Field: "channel", Equals: []string{"dealer"}},
			},
			{
				ID:     "vehicle",
				Fields: []domain.FieldSpec{{Name: "plate", Type: domain.FieldText, Required: true}},
			},
		},
	}
	catalog := staticCatalog{trade}

	f, ok := runtime.InferFlow(catalog, domain.NewDraft("plate", "ABC-1234"))
	require.True(t, ok, "the dealer step does not apply, so the vehicle step leads")
	assert.Equal(t, "trade_in", f.ID)

	_, ok = runtime.InferFlow(catalog, domain.NewDraft("plate", "ABC-1234", "channel", "dealer"))
	assert.False(t, ok, "channel is not a field of the flow")

	owner, ok := runtime.OwnerOf(catalog, domain.NewDraft("dealerCode", ""))
	require.True(t, ok)
	assert.Equal(t, "trade_in", owner.ID)

	_, ok = runtime.OwnerOf(staticCatalog{trade, trade}, domain.NewDraft("plate", "X"))
	assert.False(t, ok, "two flows define the key")
}

func TestReferenceRange(t *testing.T) {
	r := newResolver(t)
	msg := domain.FormMessage(domain.FormSubmission{
		FlowID: "inventory_check",
		Values: domain.NewDraft("itemName", "Towels", "location", "Warehouse"),
	})
	for range 50 {
		reply := resolve(t, r, msg)
		require.NotNil(t, reply.Card)
		assert.Regexp(t, `^ITM-[1-9]\d{2}$`, reply.Card.Reference)
	}
}

func fieldNames(p *domain.Prompt) []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}
