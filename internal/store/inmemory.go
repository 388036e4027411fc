package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
)

// InMemoryStore implements Store entirely in memory. It is used by tests
// and by local development runs that don't need persistence.
type InMemoryStore struct {
	mu sync.RWMutex

	turns        []models.ConversationTurn
	memory       map[string]map[string]string
	flowStates   map[string]models.FlowState
	drafts       map[string]*models.OrderDraft
	orders       []*models.Order
	reservations []*models.Reservation
	tables       map[int]*models.Table
	menu         []models.MenuItem
	customers    map[string]models.Customer

	nextOrderID       int64
	nextReservationID int64
	nextTurnID        int64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memory:     make(map[string]map[string]string),
		flowStates: make(map[string]models.FlowState),
		drafts:     make(map[string]*models.OrderDraft),
		tables:     make(map[int]*models.Table),
		customers:  make(map[string]models.Customer),
	}
}

func (s *InMemoryStore) LogConversation(turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTurnID++
	turn.ID = s.nextTurnID
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.turns = append(s.turns, turn)
	return nil
}

func (s *InMemoryStore) GetRecentTurns(contactNumber string, limit int) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.ConversationTurn
	for _, t := range s.turns {
		if t.ContactNumber == contactNumber {
			matched = append(matched, t)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (s *InMemoryStore) LastActivity(contactNumber string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].ContactNumber == contactNumber {
			ts := s.turns[i].Timestamp
			return &ts, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) GetMemory(contactNumber, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memory[contactNumber][key], nil
}

func (s *InMemoryStore) UpsertMemory(contactNumber, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memory[contactNumber] == nil {
		s.memory[contactNumber] = make(map[string]string)
	}
	s.memory[contactNumber][key] = value
	return nil
}

func (s *InMemoryStore) GetUserPreferences(contactNumber string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs := make(map[string]string, len(s.memory[contactNumber]))
	for k, v := range s.memory[contactNumber] {
		prefs[k] = v
	}
	return prefs, nil
}

func (s *InMemoryStore) GetFlowState(contactNumber string) (models.FlowState, *models.OrderDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.flowStates[contactNumber]
	if !ok {
		return models.FlowStateNone, nil, nil
	}
	draft := s.drafts[contactNumber]
	if draft != nil {
		cp := *draft
		cp.Items = append([]string(nil), draft.Items...)
		return state, &cp, nil
	}
	return state, nil, nil
}

func (s *InMemoryStore) SaveFlowState(contactNumber string, state models.FlowState, draft *models.OrderDraft) error {
	if !models.IsValidFlowState(state) {
		return models.ErrInvalidFlowState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowStates[contactNumber] = state
	if draft != nil {
		cp := *draft
		cp.Items = append([]string(nil), draft.Items...)
		s.drafts[contactNumber] = &cp
	} else {
		delete(s.drafts, contactNumber)
	}
	return nil
}

func (s *InMemoryStore) DeleteFlowState(contactNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, contactNumber)
	delete(s.drafts, contactNumber)
	return nil
}

func (s *InMemoryStore) SaveOrder(o *models.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = models.OrderStatusReceived
	}
	s.nextOrderID++
	o.ID = s.nextOrderID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	cp := *o
	s.orders = append(s.orders, &cp)
	return nil
}

// Orders returns a snapshot of every stored order. Intended for tests.
func (s *InMemoryStore) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

func (s *InMemoryStore) CancelOrder(contactNumber, orderDetails string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		if o.ContactNumber == contactNumber && o.OrderDetails == orderDetails {
			if o.Status != models.OrderStatusReceived {
				return fmt.Errorf("order %d has status %q: %w", o.ID, o.Status, models.ErrStateConflict)
			}
			o.Status = models.OrderStatusCancelled
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *InMemoryStore) LatestDoneOrder(contactNumber string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		if o.ContactNumber == contactNumber && o.Status == models.OrderStatusDone {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) RateOrder(orderID int64, rating int) error {
	if !models.IsValidRating(rating) {
		return models.ErrInvalidRating
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == orderID {
			o.Rating = rating
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *InMemoryStore) SaveReservation(r *models.Reservation) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[r.TableNumber]
	if !ok {
		return fmt.Errorf("table %d: %w", r.TableNumber, models.ErrNotFound)
	}
	if !table.Available {
		return fmt.Errorf("table %d already booked: %w", r.TableNumber, models.ErrStateConflict)
	}
	s.nextReservationID++
	r.ID = s.nextReservationID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	s.reservations = append(s.reservations, &cp)
	table.Available = false
	return nil
}

// Reservations returns a snapshot of every stored reservation. Intended for
// tests.
func (s *InMemoryStore) Reservations() []models.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, *r)
	}
	return out
}

func (s *InMemoryStore) CancelReservation(contactNumber string, tableNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.reservations) - 1; i >= 0; i-- {
		r := s.reservations[i]
		if r.TableNumber == tableNumber {
			if r.ContactNumber != contactNumber {
				return fmt.Errorf("reservation for table %d belongs to another customer: %w", tableNumber, models.ErrNotAuthorized)
			}
			s.reservations = append(s.reservations[:i], s.reservations[i+1:]...)
			if table, ok := s.tables[tableNumber]; ok {
				table.Available = true
			}
			return nil
		}
	}
	return fmt.Errorf("no reservation for table %d: %w", tableNumber, models.ErrNotFound)
}

func (s *InMemoryStore) LatestDoneReservation(contactNumber string) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.reservations) - 1; i >= 0; i-- {
		r := s.reservations[i]
		if r.ContactNumber == contactNumber && r.Done {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) RateReservation(reservationID int64, rating int) error {
	if !models.IsValidRating(rating) {
		return models.ErrInvalidRating
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ID == reservationID {
			r.Rating = rating
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *InMemoryStore) GetTable(number int) (*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.tables[number]
	if !ok {
		return nil, nil
	}
	cp := *table
	return &cp, nil
}

func (s *InMemoryStore) ListAvailableTables() ([]models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tables []models.Table
	for _, t := range s.tables {
		if t.Available {
			tables = append(tables, *t)
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Number < tables[j].Number })
	return tables, nil
}

// AddTable seeds a table. Intended for tests and local setup.
func (s *InMemoryStore) AddTable(t models.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tables[t.Number] = &cp
}

func (s *InMemoryStore) GetMenu() ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.MenuItem
	for _, m := range s.menu {
		if m.Available {
			items = append(items, m)
		}
	}
	return items, nil
}

func (s *InMemoryStore) FindMenuItem(name string) (*models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.menu {
		if m.Available && strings.EqualFold(m.Name, name) {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListMenuByCategory(category string) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.MenuItem
	for _, m := range s.menu {
		if m.Available && strings.EqualFold(m.Category, category) {
			items = append(items, m)
		}
	}
	return items, nil
}

// AddMenuItem seeds a menu item. Intended for tests and local setup.
func (s *InMemoryStore) AddMenuItem(m models.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = append(s.menu, m)
}

func (s *InMemoryStore) GetCustomerName(contactNumber string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customers[contactNumber].Name, nil
}

func (s *InMemoryStore) ListCustomerNumbers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	numbers := make([]string, 0, len(s.customers))
	for n := range s.customers {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)
	return numbers, nil
}

// AddCustomer seeds a customer. Intended for tests and local setup.
func (s *InMemoryStore) AddCustomer(c models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ContactNumber] = c
}

func (s *InMemoryStore) Close() error { return nil }
