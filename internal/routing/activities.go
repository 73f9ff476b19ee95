package routing

import "strings"

// Activity types emitted by the event mappings.
const (
	ActivityFormSubmit         = "formSubmit"
	ActivityPageVisit          = "pageVisit"
	ActivityPricingPageVisit   = "pricingPageVisit"
	ActivityMembershipInterest = "membershipInterest"
	ActivityWhiteLabelInquiry  = "whiteLabelInquiry"
	ActivityCallBooked         = "callBooked"
)

// SourceLandingPage marks contacts that arrived through a landing page.
const SourceLandingPage = "landing_page"

var qualifyingStages = map[string]bool{
	"qualified":      true,
	"hot_lead":       true,
	"ready_to_close": true,
}

// ContactActivities maps a new contact to its initial activities.
func ContactActivities(source string) []Activity {
	out := []Activity{{Type: ActivityFormSubmit, Count: 1}}
	if source == SourceLandingPage {
		out = append(out, Activity{Type: ActivityPageVisit, Count: 1})
	}
	return out
}

// FormActivities maps a form submission. The form type itself is counted as
// an activity so tenants can weight specific forms.
func FormActivities(formType string) []Activity {
	out := []Activity{
		{Type: ActivityFormSubmit, Count: 1},
		{Type: formType, Count: 1},
	}
	if strings.Contains(formType, "membership") || strings.Contains(formType, "pricing") {
		out = append(out, Activity{Type: ActivityMembershipInterest, Count: 1})
	}
	if strings.Contains(formType, "white_label") || strings.Contains(formType, "partner") {
		out = append(out, Activity{Type: ActivityWhiteLabelInquiry, Count: 1})
	}
	return out
}

// PaymentActivities maps a completed payment. Paying customers get a double
// callBooked boost so they always qualify on tenants that weight it.
func PaymentActivities(productType string) []Activity {
	return []Activity{
		{Type: ActivityFormSubmit, Count: 1},
		{Type: ActivityPricingPageVisit, Count: 1},
		{Type: productType, Count: 1},
		{Type: ActivityCallBooked, Count: 2},
	}
}

// StageActivities maps a pipeline move. ok is false for stages that do not
// trigger routing.
func StageActivities(toStage string) (activities []Activity, ok bool) {
	if !qualifyingStages[toStage] {
		return nil, false
	}
	return []Activity{
		{Type: ActivityFormSubmit, Count: 1},
		{Type: ActivityPricingPageVisit, Count: 1},
		{Type: ActivityMembershipInterest, Count: 1},
	}, true
}
