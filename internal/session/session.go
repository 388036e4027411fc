// Package session serializes message handling per customer so that two
// concurrent webhook deliveries from the same phone number cannot
// interleave reads and writes of that customer's conversation state.
package session

import (
	"hash/fnv"
	"sync"
)

// DefaultStripes is the number of mutex stripes in a Manager.
const DefaultStripes = 64

// Manager hands out per-customer locks. Customers are mapped onto a fixed
// set of mutex stripes, so memory use stays bounded no matter how many
// distinct phone numbers show up.
type Manager struct {
	stripes []sync.Mutex
}

// NewManager creates a Manager with the given number of stripes. Values
// below 1 fall back to DefaultStripes.
func NewManager(stripes int) *Manager {
	if stripes < 1 {
		stripes = DefaultStripes
	}
	return &Manager{stripes: make([]sync.Mutex, stripes)}
}

func (m *Manager) stripe(contactNumber string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(contactNumber))
	return &m.stripes[int(h.Sum32())%len(m.stripes)]
}

// Lock acquires the lock for the given customer and returns the unlock
// function. Callers must invoke the returned function exactly once.
func (m *Manager) Lock(contactNumber string) func() {
	mu := m.stripe(contactNumber)
	mu.Lock()
	return mu.Unlock
}

// Do runs fn while holding the customer's lock.
func (m *Manager) Do(contactNumber string, fn func() error) error {
	unlock := m.Lock(contactNumber)
	defer unlock()
	return fn()
}
