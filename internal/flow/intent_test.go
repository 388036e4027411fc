package flow

import (
	"testing"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
)

func TestClassifyIntentPrecedence(t *testing.T) {
	tests := []struct {
		name string
		in   Inbound
		want models.Intent
	}{
		{"reservation rating beats order rating", Inbound{Text: "r rate 5"}, models.IntentReservationRatingPrefix},
		{"order rating", Inbound{Text: "rate 4"}, models.IntentRating},
		{"book table entry point", Inbound{Text: "i want to book table"}, models.IntentBookTable},
		{"filled booking form", Inbound{Text: "reservation name: jane doe\ndate for booking: 25 june\ntime for booking: 2 pm\nnumber of people: 4\ntable number: 1"}, models.IntentBookTableFilledForm},
		{"reserve table flow", Inbound{Text: "reserve table please"}, models.IntentReserveTableFlow},
		{"place order flow", Inbound{Text: "place order"}, models.IntentPlaceOrderFlow},
		{"structured submission", Inbound{Text: "", HasSubmission: true}, models.IntentStructuredSubmission},
		{"cancel order", Inbound{Text: "cancel order for cheese"}, models.IntentCancelOrder},
		{"cancel reservation", Inbound{Text: "cancel reservation for table 2"}, models.IntentCancelReservation},
		{"reset exact match", Inbound{Text: "clear context"}, models.IntentSessionReset},
		{"reset must match whole message", Inbound{Text: "please clear context now"}, models.IntentFreeformAI},
		{"make order template", Inbound{Text: "make order"}, models.IntentMakeOrderLegacy},
		{"delivery choice 1y", Inbound{Text: "1y"}, models.IntentMakeOrderLegacy},
		{"delivery choice 2n", Inbound{Text: "2n"}, models.IntentMakeOrderLegacy},
		{"filled order form beats flow entry", Inbound{Text: "order form:\norder: bbq ribs\ndelivery: no"}, models.IntentOrderFormFilled},
		{"order marker starts free-text flow", Inbound{Text: "order: bbq ribs, mojito"}, models.IntentFlowContinue},
		{"active flow owns free text", Inbound{Text: "jane", FlowActive: true}, models.IntentFlowContinue},
		{"submission preempts active flow", Inbound{Text: "", HasSubmission: true, FlowActive: true}, models.IntentStructuredSubmission},
		{"menu query", Inbound{Text: "can i see the menu"}, models.IntentMenuQuery},
		{"greeting", Inbound{Text: "hello there"}, models.IntentGreeting},
		{"farewell", Inbound{Text: "ok bye"}, models.IntentFarewell},
		{"freeform fallback", Inbound{Text: "do you cater for weddings"}, models.IntentFreeformAI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyIntent(tt.in); got != tt.want {
				t.Errorf("ClassifyIntent(%q) = %q, want %q", tt.in.Text, got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  Hello WORLD  "); got != "hello world" {
		t.Errorf("NormalizeText = %q, want %q", got, "hello world")
	}
}
