package models

// Intent identifies which handler an inbound message is routed to. Exactly
// one intent is produced per message; the classifier evaluates its rules in
// a fixed documented order because several trigger substrings are prefixes
// or supersets of others ("r rate" vs "rate", "book table" vs the filled
// booking form).
type Intent string

const (
	// IntentReservationRatingPrefix is the explicit "r rate N" form, checked
	// before IntentRating because "rate" is a substring of it.
	IntentReservationRatingPrefix Intent = "reservation_rating_via_prefix"
	// IntentRating is the generic "rate N" order rating.
	IntentRating Intent = "rating"
	// IntentBookTable sends the booking instructions plus template.
	IntentBookTable Intent = "book_table_freeform"
	// IntentBookTableFilledForm is the filled five-line booking template.
	IntentBookTableFilledForm Intent = "book_table_filled_form"
	// IntentReserveTableFlow triggers the interactive reservation flow.
	IntentReserveTableFlow Intent = "reserve_table_flow"
	// IntentPlaceOrderFlow triggers the interactive order flow.
	IntentPlaceOrderFlow Intent = "place_order_flow"
	// IntentStructuredSubmission hands a completed flow form to the router.
	IntentStructuredSubmission Intent = "structured_flow_submission"
	// IntentCancelOrder is the free-text order cancellation command.
	IntentCancelOrder Intent = "cancel_order"
	// IntentCancelReservation is the free-text reservation cancellation.
	IntentCancelReservation Intent = "cancel_reservation"
	// IntentSessionReset clears the customer session and short-circuits.
	IntentSessionReset Intent = "session_reset"
	// IntentMakeOrderLegacy is the legacy "make order"/"1y"/"2n" template
	// entry point, kept for backward compatibility.
	IntentMakeOrderLegacy Intent = "make_order_legacy_template"
	// IntentOrderFormFilled is the filled legacy order form.
	IntentOrderFormFilled Intent = "order_form_filled"
	// IntentFlowContinue delegates to the order/delivery flow engine when a
	// flow is already in progress; the engine owns interpretation of free
	// text while active.
	IntentFlowContinue Intent = "flow_continue"
	// IntentMenuQuery asks for the menu.
	IntentMenuQuery Intent = "menu_query"
	// IntentGreeting and IntentFarewell decorate the AI reply with the
	// customer's stored name.
	IntentGreeting Intent = "greeting"
	IntentFarewell Intent = "farewell"
	// IntentFreeformAI falls through to the AI responder.
	IntentFreeformAI Intent = "freeform_ai"
)
