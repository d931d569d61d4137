package flows

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/dsl"
)

// LeadCreate captures a prospective client.
func LeadCreate() domain.Flow {
	return dsl.New("lead_create").
		Title("New Lead").
		Describe("Capture a prospective client").
		Keywords("new lead", "create lead", "add lead", "lead").
		Reference("LEAD", 3).
		Step("contact").
		Title("👤 Contact Details").
		Submit("Next").
		Text("firstName", "First Name", dsl.Required()).
		Text("lastName", "Last Name", dsl.Required()).
		Email("email", "Email", dsl.Required()).
		Text("phone", "Phone").
		Step("interest").
		Title("🎯 Interest").
		Submit("Create Lead").
		Default("leadStatus", "New").
		Radio("interestedIn", "Interested In",
			[]string{"Visa Consultation", "Immigration", "Study Abroad", "Legal Advice"}, dsl.Required()).
		Radio("source", "How did they find us?",
			[]string{"Website", "Referral", "Walk-in", "Social Media"}, dsl.Required()).
		Textarea("notes", "Notes").
		Card("🎯 Lead Created: %s").
		Badge("New").
		Line("Name", "firstName", "lastName").
		Line("Email", "email").
		Line("Phone", "phone").
		Line("Interest", "interestedIn").
		Line("Source", "source").
		NextAction("Schedule a follow-up call within 48 hours.").
		MustBuild()
}

// CaseCreate opens a legal matter in three steps.
func CaseCreate() domain.Flow {
	return dsl.New("case_create").
		Title("New Case").
		Describe("Open a new legal matter").
		Keywords("new case", "create case", "open case", "case").
		Reference("CASE", 3).
		Step("client").
		Title("👤 Client").
		Submit("Next").
		Text("clientName", "Client Name", dsl.Required()).
		Email("clientEmail", "Client Email", dsl.Required()).
		Text("clientPhone", "Client Phone").
		Step("matter").
		Title("📁 Matter").
		Submit("Next").
		Radio("caseType", "Case Type",
			[]string{"Immigration", "Family Law", "Corporate", "Criminal Defense", "Real Estate"}, dsl.Required()).
		Text("caseTitle", "Case Title", dsl.Required()).
		Textarea("description", "Description").
		Step("schedule").
		Title("📅 Filing").
		Submit("Open Case").
		Default("caseStatus", "Open").
		Date("filingDate", "Filing Date", dsl.Required()).
		Text("assignedLawyer", "Assigned Lawyer").
		Radio("priority", "Priority", []string{"Low", "Medium", "High", "Urgent"}, dsl.Required()).
		Card("⚖️ Case Opened: %s").
		Badge("Open").
		Line("Client", "clientName").
		Line("Type", "caseType").
		Line("Title", "caseTitle").
		Line("Filing Date", "filingDate").
		Line("Lawyer", "assignedLawyer").
		Line("Priority", "priority").
		NextAction("The assigned lawyer will review the file.").
		MustBuild()
}

// InvoiceCreate bills a client for a single line item.
func InvoiceCreate() domain.Flow {
	return dsl.New("invoice_create").
		Title("Create Invoice").
		Describe("Bill a client").
		Keywords("create invoice", "new invoice", "generate invoice", "bill client").
		Reference("INV", 3).
		Step("bill_to").
		Title("🧾 Bill To").
		Submit("Next").
		Text("billClient", "Client", dsl.Required()).
		Email("billEmail", "Billing Email", dsl.Required()).
		Step("line_item").
		Title("📝 Line Item").
		Submit("Create Invoice").
		Text("itemDescription", "Description", dsl.Required()).
		Text("quantity", "Quantity", dsl.Required(), dsl.Placeholder("1")).
		Text("unitPrice", "Unit Price", dsl.Required(), dsl.Placeholder("150.00")).
		Date("dueDate", "Due Date", dsl.Required()).
		Card("🧾 Invoice Created: %s").
		Badge("Draft").
		Line("Client", "billClient").
		Line("Email", "billEmail").
		Line("Item", "itemDescription").
		Line("Due", "dueDate").
		Decorate(func(d domain.Draft, c *domain.Card) {
			if total, ok := lineTotal(d.Value("quantity"), d.Value("unitPrice")); ok {
				c.Lines = append(c.Lines, fmt.Sprintf("Total: %.2f", total))
			}
			c.NextAction = "Review and send the invoice to " + d.Value("billEmail") + "."
		}).
		MustBuild()
}

func lineTotal(qty, price string) (float64, bool) {
	q, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
	if err != nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return 0, false
	}
	return q * p, true
}
