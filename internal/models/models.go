// Package models defines the core data structures for the Star Restaurant bot.
//
// It includes orders, reservations, tables, menu items, conversation records,
// and the enums shared across modules.
package models

import (
	"errors"
	"time"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	// OrderStatusReceived is the initial status of every new order.
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusInTransit marks an order that is out for delivery.
	OrderStatusInTransit OrderStatus = "in-transit"
	// OrderStatusDone marks a completed order (precondition for rating).
	OrderStatusDone OrderStatus = "done"
	// OrderStatusCancelled marks a cancelled order.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// FlowState identifies the step of the free-text order/delivery flow.
type FlowState string

const (
	// FlowStateNone means no flow is in progress for the customer.
	FlowStateNone FlowState = ""
	// FlowStateStart expects the order-items message ("order: ...").
	FlowStateStart FlowState = "start"
	// FlowStateDeliveryConfirmation expects a yes/no delivery answer.
	FlowStateDeliveryConfirmation FlowState = "delivery_confirmation"
	// FlowStateCollectName expects the delivery name.
	FlowStateCollectName FlowState = "collect_name"
	// FlowStateCollectLocation expects the delivery location.
	FlowStateCollectLocation FlowState = "collect_location"
	// FlowStateCollectTime expects fastest/max/custom <time>.
	FlowStateCollectTime FlowState = "collect_time"
)

// IsValidFlowState checks if the given flow state is one of the known steps.
func IsValidFlowState(s FlowState) bool {
	switch s {
	case FlowStateNone, FlowStateStart, FlowStateDeliveryConfirmation,
		FlowStateCollectName, FlowStateCollectLocation, FlowStateCollectTime:
		return true
	default:
		return false
	}
}

// Rating bounds for order and reservation ratings.
const (
	MinRating = 1
	MaxRating = 5
)

// SessionSummaryKey is the user_memory key under which rolling session
// summaries are stored, one row per customer (upsert semantics).
const SessionSummaryKey = "session_summary"

// Error variables for better error handling and testability
var (
	// ErrRepositoryUnavailable wraps any persistence failure; handlers catch
	// it and answer with a "try again later" message instead of propagating.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	// ErrValidation marks malformed user input (bad rating range,
	// unparseable command, missing form field).
	ErrValidation = errors.New("validation error")
	// ErrStateConflict marks an action attempted on an entity in the wrong
	// lifecycle state (cancel an in-transit order, book a taken table).
	ErrStateConflict = errors.New("state conflict")
	// ErrUnrecognizedFlow marks a structured submission matching no known
	// flow shape, indicating schema drift between form and router.
	ErrUnrecognizedFlow = errors.New("unrecognized flow submission")
	// ErrNotAuthorized marks a cancellation attempted by a customer who does
	// not own the reservation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound marks a lookup that matched no row.
	ErrNotFound = errors.New("not found")

	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrEmptyMessage     = errors.New("message body cannot be empty")
	ErrEmptyOrderItems  = errors.New("order details cannot be empty")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrInvalidFlowState = errors.New("invalid flow state")
)

// Order represents a food order placed by a customer.
type Order struct {
	ID               int64       `json:"id"`
	ContactNumber    string      `json:"contact_number"`
	OrderDetails     string      `json:"order_details"`
	Status           OrderStatus `json:"status"`
	Delivery         bool        `json:"delivery"`
	DeliveryName     string      `json:"delivery_name,omitempty"`
	DeliveryLocation string      `json:"delivery_location,omitempty"`
	DeliveryTime     string      `json:"delivery_time,omitempty"`
	Rating           int         `json:"rating,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Validate checks an order before persistence.
func (o *Order) Validate() error {
	if o.ContactNumber == "" {
		return ErrEmptyRecipient
	}
	if o.OrderDetails == "" {
		return ErrEmptyOrderItems
	}
	return nil
}

// Reservation represents a table booking.
type Reservation struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ContactNumber  string    `json:"contact_number"`
	ReservationAt  string    `json:"reservation_time"` // "<date> at <time>" as collected
	NumberOfPeople int       `json:"number_of_people"`
	TableNumber    int       `json:"table_number"`
	Done           bool      `json:"reservations_done"`
	Rating         int       `json:"rating,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks a reservation before persistence.
func (r *Reservation) Validate() error {
	if r.ContactNumber == "" {
		return ErrEmptyRecipient
	}
	if r.Name == "" {
		return errors.New("reservation name cannot be empty")
	}
	if r.TableNumber <= 0 {
		return errors.New("table number must be positive")
	}
	if r.NumberOfPeople <= 0 {
		return errors.New("number of people must be positive")
	}
	return nil
}

// Table represents a physical restaurant table.
type Table struct {
	Number    int  `json:"table_number"`
	Capacity  int  `json:"capacity"`
	Available bool `json:"is_available"`
}

// MenuItem represents one entry on the menu.
type MenuItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"item_name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
	Highlight bool    `json:"highlight"` // meal of the day
	ImageURL  string  `json:"image_url,omitempty"`
}

// ConversationTurn is one logged (user message, bot reply) exchange.
type ConversationTurn struct {
	ID            int64     `json:"id"`
	ContactNumber string    `json:"from_number"`
	Message       string    `json:"message"`
	BotReply      string    `json:"bot_reply"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// Customer is a known contact with an optional stored name.
type Customer struct {
	ContactNumber string `json:"contact_number"`
	Name          string `json:"name,omitempty"`
	Status        string `json:"status,omitempty"` // "new" or "existing"
}

// OrderDraft accumulates the partially collected order/delivery fields while
// the free-text flow is in progress. It lives only in session scratch state
// and is promoted to an Order at flow completion.
type OrderDraft struct {
	Items    []string `json:"items,omitempty"`
	Name     string   `json:"name,omitempty"`
	Location string   `json:"location,omitempty"`
	Time     string   `json:"time,omitempty"`
}

// IsValidRating reports whether r is inside the accepted rating range.
func IsValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
