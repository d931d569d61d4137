/*
Package dsl provides a Go DSL for declaring wizard flows.

A flow is an explicit, ordered table of steps. Each step asks for a set of
fields; the resolver prompts the first active step whose required fields are not
yet in the draft, so the step order written here is the guard order. Steps can be
made conditional on an earlier answer with When, and can seed the draft with
Default values.

Example usage:

	flow := dsl.New("service_booking").
		Title("Book a Service").
		Keywords("book service").
		Reference("BK", 4).
		Step("vehicle").Title("Your vehicle").Submit("Next").
		Text("customerName", "Full Name", dsl.Required()).
		Text("plateNumber", "Plate Number", dsl.Required()).
		Step("schedule").Title("Pick a slot").Submit("Confirm").
		Date("preferredDate", "Date", dsl.Required()).
		Card("✅ Booking Confirmed: %s").
		Badge("Confirmed").
		Line("Customer", "customerName").
		MustBuild()
*/
package dsl
