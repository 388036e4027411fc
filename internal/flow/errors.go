package flow

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
)

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

func isStateConflict(err error) bool {
	return errors.Is(err, models.ErrStateConflict)
}

func isNotAuthorized(err error) bool {
	return errors.Is(err, models.ErrNotAuthorized)
}

// cancelOrderReply cancels an order still in "received" status and returns
// the customer-facing reply. Orders already picked up by the kitchen share
// the not-found reply.
func cancelOrderReply(st store.Store, contactNumber, orderDetails string) string {
	err := st.CancelOrder(contactNumber, orderDetails)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Your order for '%s' under %s has been successfully canceled.", orderDetails, contactNumber)
	case isNotFound(err), isStateConflict(err):
		return fmt.Sprintf("❌ Sorry, no order for '%s' with contact number '%s' is in 'received' status. Orders in 'in-transit' cannot be canceled.", orderDetails, contactNumber)
	default:
		slog.Error("flow.cancelOrderReply: cancel failed", "contact", contactNumber, "error", err)
		return "❌ There was an issue canceling your order. Please try again later."
	}
}

// cancelReservationReply cancels a reservation owned by contactNumber and
// frees its table.
func cancelReservationReply(st store.Store, contactNumber string, tableNumber int) string {
	err := st.CancelReservation(contactNumber, tableNumber)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Reservation for table %d has been successfully canceled.", tableNumber)
	case isNotFound(err):
		return fmt.Sprintf("❌ No active reservation found for table %d.", tableNumber)
	case isNotAuthorized(err):
		return "❌ You are not authorized to cancel this reservation."
	default:
		slog.Error("flow.cancelReservationReply: cancel failed", "contact", contactNumber, "table", tableNumber, "error", err)
		return "There was an issue canceling the reservation. Please try again later."
	}
}
