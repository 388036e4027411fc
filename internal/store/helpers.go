package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// deliveryText converts the delivery flag to the Yes/No text the orders
// table stores.
func deliveryText(delivery bool) string {
	if delivery {
		return "Yes"
	}
	return "No"
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanOrder scans a full order row.
func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var delivery string
	var name, location, deliveryTime sql.NullString
	var rating sql.NullInt64
	err := row.Scan(&o.ID, &o.ContactNumber, &o.OrderDetails, &o.Status, &delivery,
		&name, &location, &deliveryTime, &rating, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Delivery = delivery == "Yes"
	o.DeliveryName = name.String
	o.DeliveryLocation = location.String
	o.DeliveryTime = deliveryTime.String
	o.Rating = int(rating.Int64)
	return &o, nil
}

// scanReservation scans a full reservation row.
func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var rating sql.NullInt64
	err := row.Scan(&r.ID, &r.Name, &r.ContactNumber, &r.ReservationAt,
		&r.NumberOfPeople, &r.TableNumber, &r.Done, &rating, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Rating = int(rating.Int64)
	return &r, nil
}

// scanMenuItem scans a full menu row.
func scanMenuItem(row rowScanner) (*models.MenuItem, error) {
	var m models.MenuItem
	var imageURL sql.NullString
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Price, &m.Available, &m.Highlight, &imageURL)
	if err != nil {
		return nil, err
	}
	m.ImageURL = imageURL.String
	return &m, nil
}

// marshalDraft serializes the order draft for the session_state table.
func marshalDraft(draft *models.OrderDraft) (interface{}, error) {
	if draft == nil {
		return nil, nil
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order draft: %w", err)
	}
	return string(data), nil
}

// unmarshalDraft deserializes the order draft column; a NULL column yields nil.
func unmarshalDraft(raw sql.NullString) (*models.OrderDraft, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var draft models.OrderDraft
	if err := json.Unmarshal([]byte(raw.String), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order draft: %w", err)
	}
	return &draft, nil
}
