// Package store provides storage backends for the Star Restaurant bot.
//
// It includes SQLite and PostgreSQL stores behind a shared Store interface,
// plus an in-memory store for tests. Schema setup runs through embedded
// migration files on startup.
package store

import (
	"os"
	"time"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// connection URL for Postgres.
	DSN string
}

// Option defines a configuration option for store constructors.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DSNFromEnv returns the configured database DSN, preferring DATABASE_URL
// (Postgres) and falling back to SQLITE_DB_PATH.
func DSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return os.Getenv("SQLITE_DB_PATH")
}

// Store is the persistence contract consumed by the message-processing core.
// All lookups that may match nothing return nil (or an empty value) with a
// nil error; models.ErrNotFound, models.ErrStateConflict and
// models.ErrNotAuthorized are reserved for operations where the distinction
// drives the user-facing reply.
type Store interface {
	// Conversation log ("restaurant" table).
	LogConversation(turn models.ConversationTurn) error
	GetRecentTurns(contactNumber string, limit int) ([]models.ConversationTurn, error)
	// LastActivity returns the timestamp of the most recent logged message
	// for the customer, or nil when no record exists.
	LastActivity(contactNumber string) (*time.Time, error)

	// Session memory (user_memory table, upsert keyed on contact+key).
	GetMemory(contactNumber, key string) (string, error)
	UpsertMemory(contactNumber, key, value string) error
	GetUserPreferences(contactNumber string) (map[string]string, error)

	// Free-text flow state, one row per customer.
	GetFlowState(contactNumber string) (models.FlowState, *models.OrderDraft, error)
	SaveFlowState(contactNumber string, state models.FlowState, draft *models.OrderDraft) error
	DeleteFlowState(contactNumber string) error

	// Orders.
	SaveOrder(o *models.Order) error
	// CancelOrder flips a "received" order to "cancelled". Returns
	// models.ErrNotFound when no order matches, models.ErrStateConflict
	// when the order exists but is past the "received" status.
	CancelOrder(contactNumber, orderDetails string) error
	// LatestDoneOrder returns the newest order with status "done" for the
	// customer, or nil when there is none.
	LatestDoneOrder(contactNumber string) (*models.Order, error)
	RateOrder(orderID int64, rating int) error

	// Reservations.
	// SaveReservation books the table atomically: models.ErrNotFound when
	// the table does not exist, models.ErrStateConflict when it is taken.
	SaveReservation(r *models.Reservation) error
	// CancelReservation deletes the booking and frees the table. Returns
	// models.ErrNotFound when no booking exists for the table and
	// models.ErrNotAuthorized when the requester is not the booker.
	CancelReservation(contactNumber string, tableNumber int) error
	LatestDoneReservation(contactNumber string) (*models.Reservation, error)
	RateReservation(reservationID int64, rating int) error

	// Tables.
	GetTable(number int) (*models.Table, error)
	ListAvailableTables() ([]models.Table, error)

	// Menu.
	GetMenu() ([]models.MenuItem, error)
	FindMenuItem(name string) (*models.MenuItem, error)
	ListMenuByCategory(category string) ([]models.MenuItem, error)

	// Customers.
	GetCustomerName(contactNumber string) (string, error)
	ListCustomerNumbers() ([]string, error)

	Close() error
}
