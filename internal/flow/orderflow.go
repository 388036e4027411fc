package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/notify"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
)

// Reply templates for the free-text order/delivery flow.
const (
	msgHowToOrder = "To place an order, please use the format: 'Order: [your order details]'."

	msgAskDelivery = "Would you like it delivered? Reply with 'Yes' or 'No'."

	msgDeliveryYesNo = "Please reply with 'Yes' or 'No' to confirm if you want delivery."

	msgAskName = "Great! Let's get some details. What is your name?"

	msgAskLocation = "Got it! Please provide the delivery location."

	msgAskTime = "Noted! What is your preferred delivery time?\n" +
		"- Type 'fastest' for immediate delivery.\n" +
		"- Type 'max' for delivery within an hour.\n" +
		"- Type 'custom' followed by the time (e.g., 'custom 3 hours')."

	msgInvalidTime = "Invalid input. Please specify:\n" +
		"- 'fastest' for immediate delivery.\n" +
		"- 'max' for delivery within an hour.\n" +
		"- 'custom' followed by the time (e.g., 'custom 3 hours')."

	msgUnexpectedState = "An unexpected error occurred. Please try placing your order again."

	msgOrderFlowError = "An error occurred while processing your order. Please try again later."

	msgOrderSaved      = "✅ Your order has been successfully saved."
	msgOrderSaveFailed = "❌ There was an issue saving your order. Please try again later."
)

// Engine is the step-indexed state machine that collects an order and its
// delivery details across multiple turns. State and the partially collected
// draft live in the store so the flow survives restarts.
type Engine struct {
	store    store.Store
	notifier notify.Notifier
}

// NewEngine creates an order/delivery flow engine.
func NewEngine(st store.Store, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Engine{store: st, notifier: notifier}
}

// Handle advances the flow by one turn and returns the reply. Text is the
// raw trimmed message; matching is case-insensitive but captured values
// (name, location, custom time) keep the customer's original casing.
// Repository failures never propagate; they collapse into a try-again reply.
func (e *Engine) Handle(ctx context.Context, contactNumber, text string) string {
	state, draft, err := e.store.GetFlowState(contactNumber)
	if err != nil {
		slog.Error("Engine.Handle failed to load flow state", "error", err, "contact", contactNumber)
		return msgOrderFlowError
	}
	if draft == nil {
		draft = &models.OrderDraft{}
	}
	lower := strings.ToLower(text)

	switch state {
	case models.FlowStateNone, models.FlowStateStart:
		return e.handleStart(ctx, contactNumber, lower, draft)
	case models.FlowStateDeliveryConfirmation:
		return e.handleDeliveryConfirmation(ctx, contactNumber, lower, draft)
	case models.FlowStateCollectName:
		draft.Name = text
		if err := e.store.SaveFlowState(contactNumber, models.FlowStateCollectLocation, draft); err != nil {
			slog.Error("Engine.Handle failed to save flow state", "error", err, "contact", contactNumber)
			return msgOrderFlowError
		}
		return msgAskLocation
	case models.FlowStateCollectLocation:
		draft.Location = text
		if err := e.store.SaveFlowState(contactNumber, models.FlowStateCollectTime, draft); err != nil {
			slog.Error("Engine.Handle failed to save flow state", "error", err, "contact", contactNumber)
			return msgOrderFlowError
		}
		return msgAskTime
	case models.FlowStateCollectTime:
		return e.handleCollectTime(ctx, contactNumber, text, lower, draft)
	default:
		// Self-healing terminal for unknown states.
		if err := e.store.DeleteFlowState(contactNumber); err != nil {
			slog.Error("Engine.Handle failed to clear flow state", "error", err, "contact", contactNumber)
		}
		return msgUnexpectedState
	}
}

func (e *Engine) handleStart(ctx context.Context, contactNumber, lower string, draft *models.OrderDraft) string {
	idx := strings.LastIndex(lower, "order:")
	if idx < 0 {
		return msgHowToOrder
	}
	itemsText := strings.TrimSpace(lower[idx+len("order:"):])
	if itemsText == "" {
		return msgHowToOrder
	}
	draft.Items = splitItems(itemsText)
	if err := e.store.SaveFlowState(contactNumber, models.FlowStateDeliveryConfirmation, draft); err != nil {
		slog.Error("Engine.handleStart failed to save flow state", "error", err, "contact", contactNumber)
		return msgOrderFlowError
	}
	slog.Info("Engine.handleStart order items captured", "contact", contactNumber, "itemCount", len(draft.Items))
	return fmt.Sprintf("Thank you! Your order for %s has been received.\n\n%s", capitalize(itemsText), msgAskDelivery)
}

func (e *Engine) handleDeliveryConfirmation(ctx context.Context, contactNumber, lower string, draft *models.OrderDraft) string {
	items := strings.Join(draft.Items, ", ")
	switch lower {
	case "yes", "y":
		if err := e.store.SaveFlowState(contactNumber, models.FlowStateCollectName, draft); err != nil {
			slog.Error("Engine.handleDeliveryConfirmation failed to save flow state", "error", err, "contact", contactNumber)
			return msgOrderFlowError
		}
		return msgAskName
	case "no", "n":
		saveResponse := e.saveOrderAndNotify(ctx, &models.Order{
			ContactNumber: contactNumber,
			OrderDetails:  items,
			Delivery:      false,
		})
		if err := e.store.DeleteFlowState(contactNumber); err != nil {
			slog.Error("Engine.handleDeliveryConfirmation failed to clear flow state", "error", err, "contact", contactNumber)
		}
		return fmt.Sprintf("Thank you! Your order for %s is being prepared. It's just awaiting collection. %s", items, saveResponse)
	default:
		return msgDeliveryYesNo
	}
}

func (e *Engine) handleCollectTime(ctx context.Context, contactNumber, text, lower string, draft *models.OrderDraft) string {
	switch {
	case strings.HasPrefix(lower, "custom"):
		draft.Time = "Custom - " + strings.TrimSpace(text[len("custom"):])
	case lower == "fastest", lower == "max":
		draft.Time = capitalize(lower)
	default:
		return msgInvalidTime
	}

	items := strings.Join(draft.Items, ", ")
	saveResponse := e.saveOrderAndNotify(ctx, &models.Order{
		ContactNumber:    contactNumber,
		OrderDetails:     items,
		Delivery:         true,
		DeliveryName:     draft.Name,
		DeliveryLocation: draft.Location,
		DeliveryTime:     draft.Time,
	})
	if err := e.store.DeleteFlowState(contactNumber); err != nil {
		slog.Error("Engine.handleCollectTime failed to clear flow state", "error", err, "contact", contactNumber)
	}
	return fmt.Sprintf("Thank you! Your order for %s will be delivered to:\nName: %s\nLocation: %s\nPreferred Time: %s.\n\n%s",
		items, draft.Name, draft.Location, draft.Time, saveResponse)
}

// saveOrderAndNotify persists the order, then alerts the admin best-effort.
// The notification never blocks the user-facing confirmation.
func (e *Engine) saveOrderAndNotify(ctx context.Context, o *models.Order) string {
	return saveOrderAndNotify(ctx, e.store, e.notifier, o)
}

func saveOrderAndNotify(ctx context.Context, st store.Store, notifier notify.Notifier, o *models.Order) string {
	if err := st.SaveOrder(o); err != nil {
		slog.Error("saveOrderAndNotify failed to persist order", "error", err, "contact", o.ContactNumber)
		return msgOrderSaveFailed
	}

	alert := fmt.Sprintf("New Order Alert:\n\nContact Number: %s\nOrder Details: %s\nDelivery: %s\nDelivery Name: %s\nDelivery Location: %s\nDelivery Time: %s",
		o.ContactNumber, o.OrderDetails, deliveryLabel(o.Delivery),
		orNA(o.DeliveryName), orNA(o.DeliveryLocation), orNA(o.DeliveryTime))
	if err := notifier.NotifyAdmin(ctx, alert); err != nil {
		slog.Error("saveOrderAndNotify failed to notify admin", "error", err, "orderID", o.ID)
	}
	return msgOrderSaved
}

func deliveryLabel(delivery bool) string {
	if delivery {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func splitItems(itemsText string) []string {
	parts := strings.Split(itemsText, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
