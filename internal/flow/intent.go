package flow

import (
	"strings"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
)

// Inbound is the classifier's view of one incoming message.
type Inbound struct {
	// Text is the trimmed, lowercased message body.
	Text string
	// HasSubmission is true when the message carries a completed flow form.
	HasSubmission bool
	// FlowActive is true when the customer has an order/delivery flow in
	// progress beyond its initial state.
	FlowActive bool
}

// resetKeywords clear the customer's session when sent as the whole message.
var resetKeywords = map[string]bool{
	"clear context": true,
	"start over":    true,
	"reset chat":    true,
}

var greetingKeywords = []string{"hello", "hi", "good morning", "hey", "howdy", "good evening", "greetings"}

var farewellKeywords = []string{"bye", "goodbye", "see you", "take care"}

// IntentRule pairs an intent with its predicate. Rules are evaluated in
// slice order, first match wins. The order is a deliberate precedence:
// "r rate" must beat "rate", the filled booking form must beat the generic
// entry points, and a structured submission must preempt an unfinished
// free-text flow.
type IntentRule struct {
	Intent  models.Intent
	Matches func(in Inbound) bool
}

func containsRule(intent models.Intent, substr string) IntentRule {
	return IntentRule{Intent: intent, Matches: func(in Inbound) bool {
		return strings.Contains(in.Text, substr)
	}}
}

// intentRules is the authoritative dispatch table.
var intentRules = []IntentRule{
	containsRule(models.IntentReservationRatingPrefix, "r rate"),
	containsRule(models.IntentRating, "rate"),
	containsRule(models.IntentBookTable, "book table"),
	containsRule(models.IntentBookTableFilledForm, "reservation name:"),
	containsRule(models.IntentReserveTableFlow, "reserve table"),
	containsRule(models.IntentPlaceOrderFlow, "place order"),
	{Intent: models.IntentStructuredSubmission, Matches: func(in Inbound) bool {
		return in.HasSubmission
	}},
	containsRule(models.IntentCancelOrder, "cancel order"),
	containsRule(models.IntentCancelReservation, "cancel reservation"),
	{Intent: models.IntentSessionReset, Matches: func(in Inbound) bool {
		return resetKeywords[in.Text]
	}},
	containsRule(models.IntentMakeOrderLegacy, "make order"),
	{Intent: models.IntentMakeOrderLegacy, Matches: func(in Inbound) bool {
		return in.Text == "1y" || in.Text == "2n"
	}},
	containsRule(models.IntentOrderFormFilled, "order form:"),
	// "order:" starts the free-text order flow; checked after "order form:"
	// so the filled template keeps precedence.
	containsRule(models.IntentFlowContinue, "order:"),
	{Intent: models.IntentFlowContinue, Matches: func(in Inbound) bool {
		return in.FlowActive
	}},
	containsRule(models.IntentMenuQuery, "menu"),
	{Intent: models.IntentGreeting, Matches: func(in Inbound) bool {
		return containsAny(in.Text, greetingKeywords)
	}},
	{Intent: models.IntentFarewell, Matches: func(in Inbound) bool {
		return containsAny(in.Text, farewellKeywords)
	}},
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ClassifyIntent evaluates the ordered rule table and returns the first
// matching intent, or IntentFreeformAI when nothing matches.
func ClassifyIntent(in Inbound) models.Intent {
	for _, rule := range intentRules {
		if rule.Matches(in) {
			return rule.Intent
		}
	}
	return models.IntentFreeformAI
}

// NormalizeText prepares a raw message body for classification.
func NormalizeText(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
