// Package store provides storage backends for the Star Restaurant bot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store on a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LogConversation(turn models.ConversationTurn) error {
	_, err := s.db.Exec(`INSERT INTO restaurant (from_number, message, bot_reply, status, reported) VALUES (?, ?, ?, ?, 0)`,
		turn.ContactNumber, turn.Message, turn.BotReply, turn.Status)
	if err != nil {
		slog.Error("SQLiteStore.LogConversation failed", "error", err, "from", turn.ContactNumber)
		return fmt.Errorf("failed to log conversation for %s: %w", turn.ContactNumber, err)
	}
	return nil
}

func (s *SQLiteStore) GetRecentTurns(contactNumber string, limit int) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(`SELECT id, from_number, message, bot_reply, status, timestamp FROM restaurant
		WHERE from_number = ? ORDER BY timestamp DESC LIMIT ?`, contactNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		var message, botReply, status sql.NullString
		if err := rows.Scan(&t.ID, &t.ContactNumber, &message, &botReply, &status, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		t.Message = message.String
		t.BotReply = botReply.String
		t.Status = status.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	// Reverse into chronological order for prompt assembly.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *SQLiteStore) LastActivity(contactNumber string) (*time.Time, error) {
	var ts time.Time
	err := s.db.QueryRow(`SELECT timestamp FROM restaurant WHERE from_number = ? ORDER BY timestamp DESC LIMIT 1`,
		contactNumber).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last activity: %w", err)
	}
	return &ts, nil
}

func (s *SQLiteStore) GetMemory(contactNumber, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow(`SELECT value FROM user_memory WHERE contact_number = ? AND memory_key = ?`,
		contactNumber, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query memory %s: %w", key, err)
	}
	return value.String, nil
}

func (s *SQLiteStore) UpsertMemory(contactNumber, key, value string) error {
	_, err := s.db.Exec(`INSERT INTO user_memory (contact_number, memory_key, value) VALUES (?, ?, ?)
		ON CONFLICT(contact_number, memory_key) DO UPDATE SET value = excluded.value`,
		contactNumber, key, value)
	if err != nil {
		slog.Error("SQLiteStore.UpsertMemory failed", "error", err, "contact", contactNumber, "key", key)
		return fmt.Errorf("failed to upsert memory %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) GetUserPreferences(contactNumber string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT memory_key, value FROM user_memory WHERE contact_number = ?`, contactNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate preference rows: %w", err)
	}
	return prefs, nil
}

func (s *SQLiteStore) GetFlowState(contactNumber string) (models.FlowState, *models.OrderDraft, error) {
	var state string
	var draftJSON sql.NullString
	err := s.db.QueryRow(`SELECT flow_state, draft_json FROM session_state WHERE contact_number = ?`,
		contactNumber).Scan(&state, &draftJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FlowStateNone, nil, nil
	}
	if err != nil {
		return models.FlowStateNone, nil, fmt.Errorf("failed to query flow state: %w", err)
	}
	draft, err := unmarshalDraft(draftJSON)
	if err != nil {
		return models.FlowStateNone, nil, err
	}
	return models.FlowState(state), draft, nil
}

func (s *SQLiteStore) SaveFlowState(contactNumber string, state models.FlowState, draft *models.OrderDraft) error {
	if !models.IsValidFlowState(state) {
		return models.ErrInvalidFlowState
	}
	draftVal, err := marshalDraft(draft)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO session_state (contact_number, flow_state, draft_json, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(contact_number) DO UPDATE SET flow_state = excluded.flow_state, draft_json = excluded.draft_json, updated_at = CURRENT_TIMESTAMP`,
		contactNumber, string(state), draftVal)
	if err != nil {
		slog.Error("SQLiteStore.SaveFlowState failed", "error", err, "contact", contactNumber, "state", state)
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteFlowState(contactNumber string) error {
	_, err := s.db.Exec(`DELETE FROM session_state WHERE contact_number = ?`, contactNumber)
	if err != nil {
		return fmt.Errorf("failed to delete flow state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveOrder(o *models.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Status == "" {
		o.Status = models.OrderStatusReceived
	}
	res, err := s.db.Exec(`INSERT INTO orders (contact_number, order_details, status, delivery, delivery_name, delivery_location, delivery_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ContactNumber, o.OrderDetails, string(o.Status), deliveryText(o.Delivery),
		nilIfEmpty(o.DeliveryName), nilIfEmpty(o.DeliveryLocation), nilIfEmpty(o.DeliveryTime))
	if err != nil {
		slog.Error("SQLiteStore.SaveOrder failed", "error", err, "contact", o.ContactNumber)
		return fmt.Errorf("failed to insert order for %s: %w", o.ContactNumber, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		o.ID = id
	}
	slog.Debug("SQLiteStore.SaveOrder succeeded", "contact", o.ContactNumber, "orderID", o.ID)
	return nil
}

func (s *SQLiteStore) CancelOrder(contactNumber, orderDetails string) error {
	var id int64
	var status string
	err := s.db.QueryRow(`SELECT id, status FROM orders WHERE contact_number = ? AND order_details = ?
		ORDER BY created_at DESC LIMIT 1`, contactNumber, orderDetails).Scan(&id, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up order: %w", err)
	}
	if models.OrderStatus(status) != models.OrderStatusReceived {
		return fmt.Errorf("order %d has status %q: %w", id, status, models.ErrStateConflict)
	}
	if _, err := s.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, string(models.OrderStatusCancelled), id); err != nil {
		return fmt.Errorf("failed to cancel order %d: %w", id, err)
	}
	slog.Info("SQLiteStore.CancelOrder succeeded", "contact", contactNumber, "orderID", id)
	return nil
}

const orderColumns = `id, contact_number, order_details, status, delivery, delivery_name, delivery_location, delivery_time, rating, created_at`

func (s *SQLiteStore) LatestDoneOrder(contactNumber string) (*models.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE contact_number = ? AND status = 'done'
		ORDER BY created_at DESC LIMIT 1`, contactNumber)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest done order: %w", err)
	}
	return o, nil
}

func (s *SQLiteStore) RateOrder(orderID int64, rating int) error {
	if !models.IsValidRating(rating) {
		return models.ErrInvalidRating
	}
	if _, err := s.db.Exec(`UPDATE orders SET rating = ? WHERE id = ?`, rating, orderID); err != nil {
		return fmt.Errorf("failed to rate order %d: %w", orderID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveReservation(r *models.Reservation) error {
	if err := r.Validate(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reservation transaction: %w", err)
	}
	defer tx.Rollback()

	var available bool
	err = tx.QueryRow(`SELECT is_available FROM restaurant_tables WHERE table_number = ?`, r.TableNumber).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("table %d: %w", r.TableNumber, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check table %d: %w", r.TableNumber, err)
	}
	if !available {
		return fmt.Errorf("table %d already booked: %w", r.TableNumber, models.ErrStateConflict)
	}

	res, err := tx.Exec(`INSERT INTO reservations (name, contact_number, reservation_time, number_of_people, table_number, reservations_done)
		VALUES (?, ?, ?, ?, ?, 0)`,
		r.Name, r.ContactNumber, r.ReservationAt, r.NumberOfPeople, r.TableNumber)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	if _, err := tx.Exec(`UPDATE restaurant_tables SET is_available = 0 WHERE table_number = ?`, r.TableNumber); err != nil {
		return fmt.Errorf("failed to mark table %d unavailable: %w", r.TableNumber, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	slog.Debug("SQLiteStore.SaveReservation succeeded", "contact", r.ContactNumber, "table", r.TableNumber)
	return nil
}

func (s *SQLiteStore) CancelReservation(contactNumber string, tableNumber int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cancellation transaction: %w", err)
	}
	defer tx.Rollback()

	var booker string
	err = tx.QueryRow(`SELECT contact_number FROM reservations WHERE table_number = ? ORDER BY created_at DESC LIMIT 1`,
		tableNumber).Scan(&booker)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no reservation for table %d: %w", tableNumber, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up reservation: %w", err)
	}
	if booker != contactNumber {
		return fmt.Errorf("reservation for table %d belongs to another customer: %w", tableNumber, models.ErrNotAuthorized)
	}

	if _, err := tx.Exec(`DELETE FROM reservations WHERE table_number = ? AND contact_number = ?`, tableNumber, contactNumber); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if _, err := tx.Exec(`UPDATE restaurant_tables SET is_available = 1 WHERE table_number = ?`, tableNumber); err != nil {
		return fmt.Errorf("failed to mark table %d available: %w", tableNumber, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	slog.Info("SQLiteStore.CancelReservation succeeded", "contact", contactNumber, "table", tableNumber)
	return nil
}

const reservationColumns = `id, name, contact_number, reservation_time, number_of_people, table_number, reservations_done, rating, created_at`

func (s *SQLiteStore) LatestDoneReservation(contactNumber string) (*models.Reservation, error) {
	row := s.db.QueryRow(`SELECT `+reservationColumns+` FROM reservations WHERE contact_number = ? AND reservations_done = 1
		ORDER BY created_at DESC LIMIT 1`, contactNumber)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest done reservation: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) RateReservation(reservationID int64, rating int) error {
	if !models.IsValidRating(rating) {
		return models.ErrInvalidRating
	}
	if _, err := s.db.Exec(`UPDATE reservations SET rating = ? WHERE id = ?`, rating, reservationID); err != nil {
		return fmt.Errorf("failed to rate reservation %d: %w", reservationID, err)
	}
	return nil
}

func (s *SQLiteStore) GetTable(number int) (*models.Table, error) {
	var t models.Table
	err := s.db.QueryRow(`SELECT table_number, capacity, is_available FROM restaurant_tables WHERE table_number = ?`,
		number).Scan(&t.Number, &t.Capacity, &t.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table %d: %w", number, err)
	}
	return &t, nil
}

func (s *SQLiteStore) ListAvailableTables() ([]models.Table, error) {
	rows, err := s.db.Query(`SELECT table_number, capacity, is_available FROM restaurant_tables WHERE is_available = 1 ORDER BY table_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query available tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.Number, &t.Capacity, &t.Available); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table rows: %w", err)
	}
	return tables, nil
}

const menuColumns = `id, item_name, category, price, available, highlight, image_url`

func (s *SQLiteStore) GetMenu() ([]models.MenuItem, error) {
	rows, err := s.db.Query(`SELECT ` + menuColumns + ` FROM menu WHERE available = 1 ORDER BY category, item_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu rows: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) FindMenuItem(name string) (*models.MenuItem, error) {
	row := s.db.QueryRow(`SELECT `+menuColumns+` FROM menu WHERE LOWER(item_name) = LOWER(?) AND available = 1 LIMIT 1`, name)
	m, err := scanMenuItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu item %q: %w", name, err)
	}
	return m, nil
}

func (s *SQLiteStore) ListMenuByCategory(category string) ([]models.MenuItem, error) {
	rows, err := s.db.Query(`SELECT `+menuColumns+` FROM menu WHERE LOWER(category) = LOWER(?) AND available = 1 ORDER BY item_name`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query category %q: %w", category, err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu rows: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) GetCustomerName(contactNumber string) (string, error) {
	var name sql.NullString
	err := s.db.QueryRow(`SELECT name FROM customers WHERE contact_number = ?`, contactNumber).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query customer name: %w", err)
	}
	return name.String, nil
}

func (s *SQLiteStore) ListCustomerNumbers() ([]string, error) {
	rows, err := s.db.Query(`SELECT contact_number FROM customers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer rows: %w", err)
	}
	return numbers, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
