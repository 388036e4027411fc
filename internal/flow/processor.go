package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/menu"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/notify"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/session"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

// Customer-facing reply templates for the processor's own handlers. Flow
// engine and router templates live next to their handlers.
const (
	msgBookingInstructions = "📢 *Booking Instructions*\n" +
		"Please copy the template message below, paste it  and replace placeholder values with your details:"

	msgBookingTemplate = "Reservation Name: Jane Doe\n" +
		"Date for Booking: 25 June\n" +
		"Time for Booking: 2 PM\n" +
		"Number of People: 4\n" +
		"Table Number: 1"

	msgBookingFormatError = "⚠️ Please provide correct details in the format:\n\n" +
		"**Reservation Name:** [Your Name]\n" +
		"**Date for Booking:** [DD Month]\n" +
		"**Time for Booking:** [HH AM/PM]\n" +
		"**Number of People:** [X]\n" +
		"**Table Number:** [Y]\n\n" +
		"Example:\n" +
		"Reservation Name: Emelda\n" +
		"Date for Booking: 25 June\n" +
		"Time for Booking: 2 PM\n" +
		"Number of People: 4\n" +
		"Table Number: 1"

	msgReservationFlowInvite = "🍽️ Let's book your table! Click below to start your reservation."
	msgOrderFlowInvite       = "🛒 Let's place your order! Click below to start the process."

	msgCancelOrderGuidance = "Oh no 🥺, I'm sorry you want to cancel your order. To cancel order made under your number, type: " +
		"'Cancel order for [Order Details]' e.g. cancel order for cheese."

	msgCancelReservationGuidance = " Oh no 🥺, I'm sorry you want to cancel your reservation. I hope everything is okay."

	msgContextCleared = "Context has been cleared. Let's start fresh! How can I assist you?"

	msgDeliveryChoice = "🚚 *Would you like delivery for your order?*\n" +
		"👉 type *1y* - for Yes, I want delivery.\n" +
		"👉 type *2n* - for No, I will pick up."

	msgDeliveryOrderInstructions = "🛒 *Order Instructions*\n" +
		"Since you've chosen *Delivery*, please copy the Order Form template message below and replace the placeholder details with your details."

	msgDeliveryOrderTemplate = " Order Form:\n" +
		"Order: BBQ Ribs, Mojito\n" +
		"Delivery: Yes\n" +
		"Name: Emelda\n" +
		"Location: 123 Main St\n" +
		"Time: 8 PM"

	msgPickupOrderInstructions = "🛒 *Order Instructions*\n" +
		"Since you've chosen *No Delivery*, please copy the Order Form template below and replace the order details with the details of what you want to order."

	msgPickupOrderTemplate = " Order Form:\n" +
		"Order: BBQ Ribs, Mojito\n" +
		"Delivery: No\n"

	msgOrderFormFormatError = "❌ Invalid format. Please use: \nThe order form specified"

	msgMissingDeliveryDetails = "❌ Missing delivery details. Please provide Name, Location, and Time."
)

// functionTriggeredMarker replaces tool-only AI replies in the conversation
// log so the history stays readable.
const functionTriggeredMarker = "[Function Triggered]"

// Processor drives one inbound message end to end: inactivity check, intent
// classification, handler dispatch, outbound sends and conversation logging.
// All per-customer work runs inside that customer's session lock.
type Processor struct {
	store      store.Store
	sessions   *session.Manager
	engine     *Engine
	router     *Router
	supervisor *Supervisor
	responder  *Responder
	menu       *menu.Service
	sender     whatsapp.MessageSender
	notifier   notify.Notifier
}

// NewProcessor wires the message-processing core. notifier may be nil.
func NewProcessor(st store.Store, sessions *session.Manager, engine *Engine, router *Router, supervisor *Supervisor, responder *Responder, menuSvc *menu.Service, sender whatsapp.MessageSender, notifier notify.Notifier) *Processor {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Processor{
		store:      st,
		sessions:   sessions,
		engine:     engine,
		router:     router,
		supervisor: supervisor,
		responder:  responder,
		menu:       menuSvc,
		sender:     sender,
		notifier:   notifier,
	}
}

// ProcessMessage handles one inbound message. It never returns an error;
// business failures become user-facing replies and transport failures are
// logged, so the webhook can always acknowledge the provider.
func (p *Processor) ProcessMessage(ctx context.Context, in *whatsapp.Incoming) {
	if in == nil || in.From == "" {
		return
	}
	unlock := p.sessions.Lock(in.From)
	defer unlock()

	p.supervisor.CheckInactivity(ctx, in.From)

	raw := strings.TrimSpace(in.Text)
	text := NormalizeText(raw)

	flowActive := false
	if state, _, err := p.store.GetFlowState(in.From); err != nil {
		slog.Warn("Processor.ProcessMessage: flow state lookup failed", "contact", in.From, "error", err)
	} else {
		flowActive = state != models.FlowStateNone && state != models.FlowStateStart
	}

	intent := ClassifyIntent(Inbound{
		Text:          text,
		HasSubmission: len(in.FlowAnswers) > 0,
		FlowActive:    flowActive,
	})
	slog.Info("Processor.ProcessMessage: dispatching", "contact", in.From, "intent", intent)

	replies := p.dispatch(ctx, in, raw, text, intent)
	for _, reply := range replies {
		if err := p.sender.SendMessage(ctx, in.From, reply); err != nil {
			slog.Error("Processor.ProcessMessage: send failed", "contact", in.From, "error", err)
		}
	}
	p.logTurn(in.From, raw, replies)
}

// dispatch runs the handler for the classified intent and returns the
// outbound replies in send order.
func (p *Processor) dispatch(ctx context.Context, in *whatsapp.Incoming, raw, text string, intent models.Intent) []string {
	switch intent {
	case models.IntentReservationRatingPrefix:
		return []string{p.handleReservationRatingCommand(in.From, text)}
	case models.IntentRating:
		return []string{p.handleOrderRatingCommand(in.From, text)}
	case models.IntentBookTable:
		return []string{msgBookingInstructions, msgBookingTemplate}
	case models.IntentBookTableFilledForm:
		return []string{p.handleBookingForm(ctx, in.From, text)}
	case models.IntentReserveTableFlow:
		return p.triggerFlow(ctx, in.From, msgReservationFlowInvite, "Start Booking", models.FlowNameReservation)
	case models.IntentPlaceOrderFlow:
		return p.triggerFlow(ctx, in.From, msgOrderFlowInvite, "Start Order", models.FlowNameOrder)
	case models.IntentStructuredSubmission:
		return []string{p.handleSubmission(ctx, in)}
	case models.IntentCancelOrder:
		if details, ok := ParseCancelOrderCommand(text); ok {
			return []string{cancelOrderReply(p.store, in.From, details)}
		}
		return []string{msgCancelOrderGuidance}
	case models.IntentCancelReservation:
		if table, ok := ParseCancelReservationCommand(text); ok {
			return []string{cancelReservationReply(p.store, in.From, table)}
		}
		return []string{msgCancelReservationGuidance}
	case models.IntentSessionReset:
		return []string{p.handleReset(in.From)}
	case models.IntentMakeOrderLegacy:
		switch text {
		case "1y":
			return []string{msgDeliveryOrderInstructions, msgDeliveryOrderTemplate}
		case "2n":
			return []string{msgPickupOrderInstructions, msgPickupOrderTemplate}
		default:
			return []string{msgDeliveryChoice}
		}
	case models.IntentOrderFormFilled:
		return []string{p.handleOrderForm(ctx, in.From, text)}
	case models.IntentFlowContinue:
		return []string{p.engine.Handle(ctx, in.From, raw)}
	case models.IntentMenuQuery:
		return []string{p.menu.DailyMenuReply()}
	case models.IntentGreeting:
		return []string{fmt.Sprintf("Hello %s! ", p.customerName(in)) + p.responder.Respond(ctx, in.From, text)}
	case models.IntentFarewell:
		return []string{p.responder.Respond(ctx, in.From, text) + fmt.Sprintf(" Goodbye %s!", p.customerName(in))}
	default:
		return []string{p.responder.Respond(ctx, in.From, text)}
	}
}

// handleReservationRatingCommand processes the free-text "r rate N" form.
// The rating is validated before any lookup; only the latest completed
// reservation is rateable.
func (p *Processor) handleReservationRatingCommand(contactNumber, text string) string {
	rating, ok := ParseReservationRatingCommand(text)
	if !ok {
		return "To rate your reservation experience, reply with 'r rate [1-5]'. Example: 'r rate 5'."
	}
	if !models.IsValidRating(rating) {
		return "Please provide a rating between 1 and 5. Example: 'r rate 5'."
	}
	reservation, err := p.store.LatestDoneReservation(contactNumber)
	if err != nil {
		slog.Error("Processor.handleReservationRatingCommand: lookup failed", "contact", contactNumber, "error", err)
		return msgRatingError
	}
	if reservation == nil {
		return msgNoCompletedReservation
	}
	if err := p.store.RateReservation(reservation.ID, rating); err != nil {
		slog.Error("Processor.handleReservationRatingCommand: rate failed", "contact", contactNumber, "reservationID", reservation.ID, "error", err)
		return msgRatingError
	}
	return "Thank you for rating your reservation experience! 🌟 We hope to see you again soon."
}

// handleOrderRatingCommand processes the free-text "rate N" form against
// the latest completed order.
func (p *Processor) handleOrderRatingCommand(contactNumber, text string) string {
	rating, ok := ParseOrderRatingCommand(text)
	if !ok {
		return "To rate your experience, reply with 'Rate [1-5]'. Example: 'Rate 5'."
	}
	if !models.IsValidRating(rating) {
		return "Please provide a rating between 1 and 5. Example: 'Rate 5'."
	}
	order, err := p.store.LatestDoneOrder(contactNumber)
	if err != nil {
		slog.Error("Processor.handleOrderRatingCommand: lookup failed", "contact", contactNumber, "error", err)
		return msgRatingError
	}
	if order == nil {
		return msgNoCompletedOrder
	}
	if err := p.store.RateOrder(order.ID, rating); err != nil {
		slog.Error("Processor.handleOrderRatingCommand: rate failed", "contact", contactNumber, "orderID", order.ID, "error", err)
		return msgRatingError
	}
	return "Thank you for rating your order experience! 🌟 We hope to see you again soon."
}

// handleBookingForm saves a reservation from the filled five-line template.
func (p *Processor) handleBookingForm(ctx context.Context, contactNumber, text string) string {
	form, ok := ParseBookingForm(text)
	if !ok {
		return msgBookingFormatError
	}
	reservation := &models.Reservation{
		Name:           form.Name,
		ContactNumber:  contactNumber,
		ReservationAt:  fmt.Sprintf("%s at %s", form.Date, form.Time),
		NumberOfPeople: form.NumberOfPeople,
		TableNumber:    form.TableNumber,
	}
	return saveReservationAndNotify(ctx, p.store, p.notifier, reservation, form.Date, form.Time)
}

// handleOrderForm validates and saves an order from the filled legacy
// template.
func (p *Processor) handleOrderForm(ctx context.Context, contactNumber, text string) string {
	form, ok := ParseOrderForm(text)
	if !ok {
		return msgOrderFormFormatError
	}
	available, unavailable, err := p.router.validateItems(splitItems(form.Items))
	if err != nil {
		slog.Error("Processor.handleOrderForm: validation failed", "contact", contactNumber, "error", err)
		return msgOrderValidationFail
	}
	if len(unavailable) > 0 {
		menuItems, err := p.store.GetMenu()
		if err != nil {
			slog.Error("Processor.handleOrderForm: menu lookup failed", "contact", contactNumber, "error", err)
			return "An error occurred while checking item availability. Please try again later."
		}
		names := make([]string, len(menuItems))
		for i, item := range menuItems {
			names[i] = item.Name
		}
		return fmt.Sprintf("❌ The following items are not available: %s.\nHere's what we currently have on our menu:\n%s\n Please resend your order form with the corrected menu item",
			strings.Join(unavailable, ", "), strings.Join(names, ", "))
	}

	items := strings.Join(available, ", ")
	if !form.Delivery {
		order := &models.Order{ContactNumber: contactNumber, OrderDetails: items, Delivery: false}
		if resp := saveOrderAndNotify(ctx, p.store, p.notifier, order); resp == msgOrderSaveFailed {
			return resp
		}
		return fmt.Sprintf("✅ Your order for %s has been placed successfully. No delivery required, can't wait to see you when you come collect it.", items)
	}
	if form.Name == "" || form.Location == "" || form.Time == "" {
		return msgMissingDeliveryDetails
	}
	order := &models.Order{
		ContactNumber:    contactNumber,
		OrderDetails:     items,
		Delivery:         true,
		DeliveryName:     form.Name,
		DeliveryLocation: form.Location,
		DeliveryTime:     form.Time,
	}
	if resp := saveOrderAndNotify(ctx, p.store, p.notifier, order); resp == msgOrderSaveFailed {
		return resp
	}
	return fmt.Sprintf("🚚 Order Confirmed! Your %s will be delivered to %s at %s. Thank you for choosing Star!", items, form.Location, form.Time)
}

// handleSubmission routes a completed flow form.
func (p *Processor) handleSubmission(ctx context.Context, in *whatsapp.Incoming) string {
	sub, err := ClassifySubmission(in.FlowAnswers)
	if err != nil {
		slog.Warn("Processor.handleSubmission: unrecognized submission", "contact", in.From, "error", err)
		return msgOrderValidationFail
	}
	return p.router.Dispatch(ctx, in.From, sub)
}

// handleReset clears the customer's session state. Deleting an absent flow
// state is a no-op, so repeated resets return the same confirmation.
func (p *Processor) handleReset(contactNumber string) string {
	if err := p.store.DeleteFlowState(contactNumber); err != nil {
		slog.Error("Processor.handleReset: clear failed", "contact", contactNumber, "error", err)
	}
	return msgContextCleared
}

// triggerFlow sends an interactive flow invitation. The invite text doubles
// as the logged reply.
func (p *Processor) triggerFlow(ctx context.Context, contactNumber, message, cta string, flow models.FlowName) []string {
	params := models.TriggerFlowParams{
		ToNumber: contactNumber,
		Message:  message,
		FlowCTA:  cta,
		FlowName: flow,
	}
	if err := p.sender.TriggerFlow(ctx, params, p.menu.FlowMenuItems()); err != nil {
		slog.Error("Processor.triggerFlow: trigger failed", "contact", contactNumber, "flow", flow, "error", err)
	}
	// The interactive message is the reply; nothing further to send.
	return nil
}

func (p *Processor) customerName(in *whatsapp.Incoming) string {
	name, err := p.store.GetCustomerName(in.From)
	if err != nil {
		slog.Warn("Processor.customerName: lookup failed", "contact", in.From, "error", err)
	}
	if name == "" {
		name = in.ProfileName
	}
	if name == "" {
		name = "there"
	}
	return name
}

// logTurn records the exchange; tool-only AI replies are logged with a
// marker instead of their synthetic text.
func (p *Processor) logTurn(contactNumber, message string, replies []string) {
	reply := strings.Join(replies, "\n")
	if strings.Contains(reply, FunctionExecutedReply) {
		reply = functionTriggeredMarker
	}
	turn := models.ConversationTurn{
		ContactNumber: contactNumber,
		Message:       message,
		BotReply:      reply,
		Status:        "processed",
	}
	if err := p.store.LogConversation(turn); err != nil {
		slog.Error("Processor.logTurn: log failed", "contact", contactNumber, "error", err)
	}
}
