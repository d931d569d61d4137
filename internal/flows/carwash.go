package flows

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/dsl"
)

// ServiceOptions are the bookable services.
var ServiceOptions = []string{"Basic Wash", "Premium Wash", "Full Detail", "Oil Change", "Tire Rotation"}

// TimeSlots are the bookable time windows.
var TimeSlots = []string{"Morning (8AM-12PM)", "Afternoon (12PM-4PM)", "Evening (4PM-8PM)"}

// ServiceBooking books a vehicle service in two steps.
func ServiceBooking() domain.Flow {
	return dsl.New("service_booking").
		Title("Book Service").
		Describe("Book a wash, detail or maintenance slot").
		Keywords("book service", "book a service", "booking", "book", "schedule service").
		Reference("BK", 4).
		Step("customer_vehicle").
		Title("🚗 Customer & Vehicle Details").
		Submit("Next").
		Text("customerName", "Full Name", dsl.Required(), dsl.Placeholder("John Doe")).
		Text("phone", "Phone Number", dsl.Required(), dsl.Placeholder("+1 555 0100")).
		Text("vehicleMake", "Vehicle Make", dsl.Required(), dsl.Placeholder("Toyota")).
		Text("vehicleModel", "Vehicle Model", dsl.Required(), dsl.Placeholder("Camry")).
		Text("plateNumber", "Plate Number", dsl.Required(), dsl.Placeholder("ABC-1234")).
		Step("service_schedule").
		Title("🧽 Service & Schedule").
		Submit("Confirm Booking").
		Radio("serviceType", "Service", ServiceOptions, dsl.Required()).
		Date("preferredDate", "Preferred Date", dsl.Required()).
		Radio("preferredTime", "Preferred Time", TimeSlots, dsl.Required()).
		Textarea("notes", "Notes", dsl.Placeholder("Anything we should know?")).
		Card("✅ Booking Confirmed: %s").
		Badge("Confirmed").
		Line("Customer", "customerName").
		Line("Phone", "phone").
		Line("Vehicle", "vehicleMake", "vehicleModel").
		Line("Plate", "plateNumber").
		Line("Service", "serviceType").
		Line("Date & Time", "preferredDate", "preferredTime").
		NextAction("We'll send a reminder the day before your appointment.").
		MustBuild()
}

type jobStage struct {
	name     string
	progress int
	next     string
}

var jobStages = []jobStage{
	{"Received", 20, "Pre-wash inspection"},
	{"Washing", 40, "Interior cleaning"},
	{"Detailing", 60, "Quality check"},
	{"Quality Check", 80, "Ready for pickup"},
	{"Ready for Pickup", 100, "Collect your vehicle at the front desk"},
}

// stageFor picks a stable stage for a job number so repeated lookups agree.
func stageFor(jobNumber string) jobStage {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToUpper(strings.TrimSpace(jobNumber))))
	return jobStages[h.Sum32()%uint32(len(jobStages))]
}

// JobStatus looks up the progress of a job.
func JobStatus() domain.Flow {
	return dsl.New("job_status").
		Title("Check Job Status").
		Describe("Track a vehicle that is being serviced").
		Keywords("job status", "check job status", "check job", "track job", "status").
		Reference("JOB", 3).
		Step("lookup").
		Title("🔎 Find Your Job").
		Submit("Check Status").
		Text("jobNumber", "Job Number", dsl.Required(), dsl.Placeholder("JOB-123")).
		Text("plateNumber", "Plate Number", dsl.Placeholder("ABC-1234")).
		Card("🔧 Job Status: %s").
		Line("Job", "jobNumber").
		Line("Plate", "plateNumber").
		Decorate(func(d domain.Draft, c *domain.Card) {
			stage := stageFor(d.Value("jobNumber"))
			progress := stage.progress
			c.Badge = stage.name
			c.Progress = &progress
			c.LastUpdate = "Current stage: " + stage.name
			c.NextAction = stage.next
		}).
		MustBuild()
}

// InvoiceView shows an existing invoice.
func InvoiceView() domain.Flow {
	return dsl.New("invoice_view").
		Title("View Invoice").
		Describe("Look up an invoice by number").
		Keywords("view invoice", "show invoice", "my invoice", "invoice status", "invoice").
		Reference("INV", 3).
		Step("lookup").
		Title("🧾 Find Your Invoice").
		Submit("View Invoice").
		Text("invoiceNumber", "Invoice Number", dsl.Required(), dsl.Placeholder("INV-001")).
		Email("email", "Email on File").
		Card("🧾 Invoice %s").
		Badge("Unpaid").
		Line("Invoice", "invoiceNumber").
		Line("Sent To", "email").
		NextAction(`Say "make payment" to settle this invoice.`).
		MustBuild()
}

// PaymentMethods are the accepted payment methods.
var PaymentMethods = []string{"Card", "Bank Transfer", "Cash"}

// Payment settles an invoice. The second step depends on the chosen method.
func Payment() domain.Flow {
	return dsl.New("payment").
		Title("Make Payment").
		Describe("Pay an invoice by card, bank transfer or cash").
		Keywords("make payment", "make a payment", "pay invoice", "pay", "payment").
		Reference("PAY", 3).
		Step("payment_details").
		Title("💳 Payment Details").
		Submit("Next").
		Text("invoiceRef", "Invoice Number", dsl.Required(), dsl.Placeholder("INV-001")).
		Text("amount", "Amount", dsl.Required(), dsl.Placeholder("120.00")).
		Radio("method", "Payment Method", PaymentMethods, dsl.Required()).
		Step("card_details").
		When("method", "Card").
		Title("💳 Card Details").
		Submit("Next").
		Text("cardHolder", "Card Holder", dsl.Required()).
		Text("cardLast4", "Last 4 Digits", dsl.Required(), dsl.Placeholder("4242")).
		Step("bank_details").
		When("method", "Bank Transfer").
		Title("🏦 Bank Transfer").
		Submit("Next").
		Text("bankName", "Bank Name", dsl.Required()).
		Text("transferReference", "Transfer Reference", dsl.Required()).
		Step("receipt").
		Title("📧 Receipt").
		Submit("Pay Now").
		Default("currency", "USD").
		Email("payerEmail", "Send Receipt To", dsl.Required()).
		Card("💳 Payment Received: %s").
		Badge("Paid").
		Line("Invoice", "invoiceRef").
		Line("Amount", "amount", "currency").
		Line("Method", "method").
		Line("Receipt To", "payerEmail").
		NextAction("A receipt is on its way to your inbox.").
		MustBuild()
}

// InventoryCheck reports stock for an item.
func InventoryCheck() domain.Flow {
	return dsl.New("inventory_check").
		Title("Inventory Check").
		Describe("Check stock levels of supplies").
		Keywords("inventory check", "check inventory", "check stock", "inventory", "stock").
		Reference("ITM", 3).
		Step("item").
		Title("📦 Which Item?").
		Submit("Check Stock").
		Text("itemName", "Item", dsl.Required(), dsl.Placeholder("Microfiber towels")).
		Radio("location", "Location", []string{"Main Store", "Warehouse", "All Locations"}, dsl.Required()).
		Card("📦 Stock Report: %s").
		Line("Item", "itemName").
		Line("Location", "location").
		Decorate(func(d domain.Draft, c *domain.Card) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.ToLower(d.Value("itemName") + "|" + d.Value("location"))))
			units := int(h.Sum32() % 200)
			c.Lines = append(c.Lines, fmt.Sprintf("On Hand: %d units", units))
			if units < 25 {
				c.Badge = "Low Stock"
				c.NextAction = `Say "purchase order" to reorder.`
			} else {
				c.Badge = "In Stock"
			}
		}).
		MustBuild()
}

// PurchaseOrder raises a supplier order.
func PurchaseOrder() domain.Flow {
	return dsl.New("purchase_order").
		Title("Purchase Order").
		Describe("Order supplies from a vendor").
		Keywords("purchase order", "new po", "order supplies", "reorder").
		Reference("PO", 3).
		Step("supplier").
		Title("🏭 Supplier").
		Submit("Next").
		Text("supplierName", "Supplier", dsl.Required()).
		Email("supplierEmail", "Supplier Email").
		Step("order_lines").
		Title("🛒 Order").
		Submit("Create Order").
		Text("poItem", "Item", dsl.Required()).
		Text("poQuantity", "Quantity", dsl.Required()).
		Date("deliveryDate", "Needed By", dsl.Required()).
		Radio("urgency", "Urgency", []string{"Standard", "Express"}, dsl.Required()).
		Card("🛒 Purchase Order Created: %s").
		Badge("Pending Approval").
		Line("Supplier", "supplierName").
		Line("Item", "poQuantity", "poItem").
		Line("Needed By", "deliveryDate").
		Line("Urgency", "urgency").
		NextAction("A manager will approve the order shortly.").
		MustBuild()
}
