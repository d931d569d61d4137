package flows

import (
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/dsl"
)

// VisaConsultation books a consultation: visa type, then destination, then contact details.
func VisaConsultation() domain.Flow {
	return dsl.New("visa_consultation").
		Title("Visa Consultation").
		Describe("Book a consultation with a migration agent").
		Keywords("visa consultation", "visa", "immigration consultation", "migrate").
		Reference("VC", 3).
		Step("visa").
		Title("🛂 Visa Type").
		Submit("Next").
		Radio("visa", "Visa Type",
			[]string{"Student", "Work", "Tourist", "Permanent Residency", "Family"}, dsl.Required()).
		Step("destination").
		Title("🌍 Destination").
		Submit("Next").
		Radio("country", "Country",
			[]string{"Canada", "Australia", "United Kingdom", "United States", "Germany"}, dsl.Required()).
		Date("intendedDate", "Intended Travel Date").
		Step("contact").
		Title("👤 Your Details").
		Submit("Book Consultation").
		Text("firstName", "First Name", dsl.Required()).
		Text("lastName", "Last Name", dsl.Required()).
		Email("email", "Email", dsl.Required()).
		Text("phone", "Phone").
		Card("🌍 Consultation Booked: %s").
		Badge("Scheduled").
		Line("Applicant", "firstName", "lastName").
		Line("Visa", "visa").
		Line("Country", "country").
		Line("Email", "email").
		NextAction("A consultant will contact you within 24 hours.").
		MustBuild()
}
