package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/notify"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
)

// Reply templates for the structured-flow handlers.
const (
	msgInvalidRatingValue = "Invalid rating value. Please provide a rating between 1 and 5."
	msgRatingError        = "An error occurred while processing your rating. Please try again later."

	msgNoCompletedOrder = "We couldn't find a completed order to rate. " +
		"Please ensure your order is marked as 'completed' before rating."
	msgNoCompletedReservation = "We couldn't find a completed reservation to rate. " +
		"Please ensure your reservation is marked as 'completed' before rating."

	msgInvalidTableNumber  = "Invalid table number. Please choose a valid table."
	msgReservationError    = "Error saving reservation."
	msgAllTablesBooked     = "Apologies 🥺, all tables are fully booked. Please check back later or contact us for assistance."
	msgOrderValidationFail = "There was an issue validating your order. Please try again."
)

// ClassifySubmission maps a decrypted flow payload onto the submission sum
// type. The checks run in a fixed precedence: reservation date/time presence
// wins over everything, then order rating, then reservation rating, then
// order items. An unmatched payload is schema drift between the form
// designer and this router, surfaced as ErrUnrecognizedFlow.
func ClassifySubmission(answers map[string]interface{}) (models.Submission, error) {
	if answers == nil {
		return nil, fmt.Errorf("empty submission: %w", models.ErrUnrecognizedFlow)
	}

	_, hasDate := answers["reservation_date"]
	_, hasTime := answers["reservation_time"]
	if hasDate && hasTime {
		return models.ReservationSubmission{
			Name:           stringValue(answers["name"]),
			Date:           stringValue(answers["reservation_date"]),
			TimeRaw:        stringValue(answers["reservation_time"]),
			NumberOfPeople: stringValue(answers["number_of_people"]),
			TableRaw:       stringValue(answers["table_number"]),
		}, nil
	}

	if value, ok := findByKeySubstring(answers, "Order_experience"); ok {
		return models.OrderRatingSubmission{RatingText: stringValue(value)}, nil
	}
	if value, ok := findByKeySubstring(answers, "Dining_Experience"); ok {
		return models.ReservationRatingSubmission{RatingText: stringValue(value)}, nil
	}
	if value, ok := findByKeySubstring(answers, "Order_Item"); ok {
		return models.OrderFormSubmission{
			Items:       stringSlice(value),
			DeliveryRaw: stringValue(answers["screen_0_Delivery_1"]),
			Name:        strings.TrimSpace(stringValue(answers["screen_1_Name_0"])),
			Location:    strings.TrimSpace(stringValue(answers["screen_1_Location_1"])),
			Time:        strings.TrimSpace(stringValue(answers["screen_1_Time_2"])),
		}, nil
	}

	return nil, fmt.Errorf("no handler matches submission keys: %w", models.ErrUnrecognizedFlow)
}

// Router dispatches classified submissions to their business handlers.
type Router struct {
	store    store.Store
	notifier notify.Notifier
}

// NewRouter creates a structured-flow router.
func NewRouter(st store.Store, notifier notify.Notifier) *Router {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Router{store: st, notifier: notifier}
}

// Dispatch runs the handler for the submission and returns the reply text.
func (r *Router) Dispatch(ctx context.Context, contactNumber string, sub models.Submission) string {
	switch s := sub.(type) {
	case models.ReservationSubmission:
		return r.handleReservation(ctx, contactNumber, s)
	case models.OrderRatingSubmission:
		return r.handleOrderRating(ctx, contactNumber, s)
	case models.ReservationRatingSubmission:
		return r.handleReservationRating(ctx, contactNumber, s)
	case models.OrderFormSubmission:
		return r.handleOrderFlow(ctx, contactNumber, s)
	default:
		slog.Error("Router.Dispatch unknown submission kind", "contact", contactNumber)
		return msgOrderValidationFail
	}
}

func (r *Router) handleReservation(ctx context.Context, contactNumber string, s models.ReservationSubmission) string {
	reservationTime := "Invalid time"
	if m := flowTimeRe.FindString(s.TimeRaw); m != "" {
		reservationTime = m
	}

	// The UI table selector is zero-indexed; table numbers are 1-indexed.
	tableDigits := digitsRe.FindString(s.TableRaw)
	if tableDigits == "" {
		slog.Warn("Router.handleReservation invalid table selector", "contact", contactNumber, "raw", s.TableRaw)
		return msgInvalidTableNumber
	}
	tableIndex, err := strconv.Atoi(tableDigits)
	if err != nil {
		return msgInvalidTableNumber
	}
	tableNumber := tableIndex + 1

	people, _ := strconv.Atoi(digitsRe.FindString(s.NumberOfPeople))

	reservation := &models.Reservation{
		Name:           s.Name,
		ContactNumber:  contactNumber,
		ReservationAt:  fmt.Sprintf("%s at %s", s.Date, reservationTime),
		NumberOfPeople: people,
		TableNumber:    tableNumber,
	}
	return saveReservationAndNotify(ctx, r.store, r.notifier, reservation, s.Date, reservationTime)
}

func (r *Router) handleOrderRating(ctx context.Context, contactNumber string, s models.OrderRatingSubmission) string {
	// The option text encodes "<index>_<stars>_(<n>/5)"; the rating is the
	// second digit group, naive first-number extraction would pick the
	// option index.
	groups := digitsRe.FindAllString(s.RatingText, -1)
	if len(groups) < 2 {
		slog.Warn("Router.handleOrderRating invalid rating format", "contact", contactNumber, "text", s.RatingText)
		return msgInvalidRatingValue
	}
	rating, err := strconv.Atoi(groups[1])
	if err != nil || !models.IsValidRating(rating) {
		slog.Warn("Router.handleOrderRating rating out of range", "contact", contactNumber, "rating", groups[1])
		return msgInvalidRatingValue
	}

	order, err := r.store.LatestDoneOrder(contactNumber)
	if err != nil {
		slog.Error("Router.handleOrderRating lookup failed", "error", err, "contact", contactNumber)
		return msgRatingError
	}
	if order == nil {
		return msgNoCompletedOrder
	}
	if err := r.store.RateOrder(order.ID, rating); err != nil {
		slog.Error("Router.handleOrderRating failed to persist rating", "error", err, "orderID", order.ID)
		return msgRatingError
	}
	slog.Info("Router.handleOrderRating rating recorded", "contact", contactNumber, "orderID", order.ID, "rating", rating)
	return fmt.Sprintf("⭐ Thank you for rating your order %d/5! We appreciate your feedback. 😊", rating)
}

func (r *Router) handleReservationRating(ctx context.Context, contactNumber string, s models.ReservationRatingSubmission) string {
	// Unlike the order rating, this handler takes the LAST digit group.
	// The asymmetry matches the deployed form behavior; see DESIGN.md.
	groups := digitsRe.FindAllString(s.RatingText, -1)
	if len(groups) == 0 {
		slog.Warn("Router.handleReservationRating invalid rating format", "contact", contactNumber, "text", s.RatingText)
		return msgInvalidRatingValue
	}
	rating, err := strconv.Atoi(groups[len(groups)-1])
	if err != nil || !models.IsValidRating(rating) {
		slog.Warn("Router.handleReservationRating rating out of range", "contact", contactNumber, "rating", groups[len(groups)-1])
		return msgInvalidRatingValue
	}

	reservation, err := r.store.LatestDoneReservation(contactNumber)
	if err != nil {
		slog.Error("Router.handleReservationRating lookup failed", "error", err, "contact", contactNumber)
		return msgRatingError
	}
	if reservation == nil {
		return msgNoCompletedReservation
	}
	if err := r.store.RateReservation(reservation.ID, rating); err != nil {
		slog.Error("Router.handleReservationRating failed to persist rating", "error", err, "reservationID", reservation.ID)
		return msgRatingError
	}
	slog.Info("Router.handleReservationRating rating recorded", "contact", contactNumber, "reservationID", reservation.ID, "rating", rating)
	return fmt.Sprintf("⭐ Thank you for rating your reservation %d/5! We appreciate your feedback. 😊", rating)
}

func (r *Router) handleOrderFlow(ctx context.Context, contactNumber string, s models.OrderFormSubmission) string {
	// UI option ids are "optionindex_displaytext"; drop the prefix.
	items := make([]string, 0, len(s.Items))
	for _, raw := range s.Items {
		if i := strings.Index(raw, "_"); i >= 0 {
			items = append(items, raw[i+1:])
		} else {
			items = append(items, raw)
		}
	}

	available, unavailable, err := r.validateItems(items)
	if err != nil {
		slog.Error("Router.handleOrderFlow item validation failed", "error", err, "contact", contactNumber)
		return msgOrderValidationFail
	}
	if len(unavailable) > 0 {
		return fmt.Sprintf("❌ The following items are not available: %s.\nPlease retry your order with available menu items.",
			strings.Join(unavailable, ", "))
	}
	orderDetails := strings.Join(available, ", ")

	delivery := s.DeliveryRaw == "0_Yes"
	if !delivery {
		saveOrderAndNotify(ctx, r.store, r.notifier, &models.Order{
			ContactNumber: contactNumber,
			OrderDetails:  orderDetails,
			Delivery:      false,
		})
		return fmt.Sprintf("✅ Your order for %s has been placed successfully. No delivery required.", orderDetails)
	}

	location := s.Location
	if location == "" {
		location = "Not Required"
	}
	deliveryTime := s.Time
	if deliveryTime == "" {
		deliveryTime = "max"
	}
	saveOrderAndNotify(ctx, r.store, r.notifier, &models.Order{
		ContactNumber:    contactNumber,
		OrderDetails:     orderDetails,
		Delivery:         true,
		DeliveryName:     s.Name,
		DeliveryLocation: location,
		DeliveryTime:     deliveryTime,
	})
	return fmt.Sprintf("🚚 Order Confirmed! Your %s will be delivered!", orderDetails)
}

// validateItems checks each ordered item against the menu and splits the
// list into available and unavailable names.
func (r *Router) validateItems(items []string) (available, unavailable []string, err error) {
	for _, item := range items {
		name := strings.TrimSpace(item)
		if name == "" {
			continue
		}
		menuItem, err := r.store.FindMenuItem(name)
		if err != nil {
			return nil, nil, err
		}
		if menuItem == nil {
			unavailable = append(unavailable, strings.ToLower(name))
		} else {
			available = append(available, strings.ToLower(menuItem.Name))
		}
	}
	return available, unavailable, nil
}

// saveReservationAndNotify persists the reservation and alerts the admin
// best-effort. Table conflicts come back with the list of still-available
// tables so the customer can rebook without asking.
func saveReservationAndNotify(ctx context.Context, st store.Store, notifier notify.Notifier, r *models.Reservation, date, timeText string) string {
	err := st.SaveReservation(r)
	switch {
	case err == nil:
		// fallthrough to notification below
	case isNotFound(err):
		return fmt.Sprintf("Table %d does not exist in our restaurant. Please choose a valid table number.", r.TableNumber)
	case isStateConflict(err):
		tables, listErr := st.ListAvailableTables()
		if listErr != nil {
			slog.Error("saveReservationAndNotify failed to list tables", "error", listErr)
			return msgReservationError
		}
		if len(tables) == 0 {
			return msgAllTablesBooked
		}
		options := make([]string, len(tables))
		for i, t := range tables {
			options[i] = fmt.Sprintf("Table %d (Capacity: %d)", t.Number, t.Capacity)
		}
		return fmt.Sprintf("Apologies 🥺, Table %d is already booked. Please choose another table from remaining options:\n%s\nNB* Please resend your template message with the new table number",
			r.TableNumber, strings.Join(options, "\n"))
	default:
		slog.Error("saveReservationAndNotify failed to persist reservation", "error", err, "contact", r.ContactNumber)
		return msgReservationError
	}

	alert := fmt.Sprintf("New Reservation Alert:\n\nName: %s\nContact Number: %s\nTime: %s at %s\nNumber of People: %d\nTable Number: %d\nStatus: Pending (Not yet completed)",
		r.Name, r.ContactNumber, date, timeText, r.NumberOfPeople, r.TableNumber)
	if err := notifier.NotifyAdmin(ctx, alert); err != nil {
		slog.Error("saveReservationAndNotify failed to notify admin", "error", err, "reservationID", r.ID)
	}
	return fmt.Sprintf("Success! Booking confirmed for %s on %s at %s for %d people at table %d.",
		r.Name, date, timeText, r.NumberOfPeople, r.TableNumber)
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vv}
	default:
		return nil
	}
}

func findByKeySubstring(answers map[string]interface{}, substr string) (interface{}, bool) {
	for key, value := range answers {
		if strings.Contains(key, substr) {
			return value, true
		}
	}
	return nil, false
}
