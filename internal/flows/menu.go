// Package flows declares the built-in wizard catalog: the car-wash front desk,
// the law-firm case desk and the migration consultancy.
package flows

import (
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/dsl"
)

// Help is the reply to input that matches no flow.
const Help = `I'm not sure I understood that. I can help you with:

- **Book Service**
- **Check Job Status**
- **View Invoice**
- **Make Payment**

Type one of these to get started, or say "menu" to see everything I can do.`

const menuText = `👋 Hi! I'm your front-desk assistant. Here is what I can do:

**Car wash**
- Book Service
- Check Job Status
- View Invoice
- Make Payment
- Inventory Check
- Purchase Order

**Law firm**
- New Lead
- New Case
- Create Invoice

**Migration**
- Visa Consultation

What would you like to do?`

// MainMenu is the greeting flow.
func MainMenu() domain.Flow {
	return dsl.New("main_menu").
		Title("Main Menu").
		Describe("Greeting and list of everything the assistant can do").
		Keywords("hi", "hello", "hey", "menu", "help", "help me", "start", "options", "main menu").
		Text(menuText).
		MustBuild()
}

// Catalog returns every built-in flow in catalog order.
// Catalog order breaks ties when a submitted draft fits more than one flow.
func Catalog() []domain.Flow {
	return []domain.Flow{
		MainMenu(),
		ServiceBooking(),
		JobStatus(),
		InvoiceView(),
		Payment(),
		InventoryCheck(),
		PurchaseOrder(),
		LeadCreate(),
		CaseCreate(),
		InvoiceCreate(),
		VisaConsultation(),
	}
}
