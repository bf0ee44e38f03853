// Package memory provides an in-memory implementation of the storage
// interfaces. It is suitable for tests and single-process use.
package memory

import (
	"context"
	"sync"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu     sync.Mutex
	items  cart.Items
	events []security.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// LoadCart returns the stored cart.
func (s *Store) LoadCart(_ context.Context) (cart.Items, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone(), nil
}

// SaveCart replaces the stored cart.
func (s *Store) SaveCart(_ context.Context, items cart.Items) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items.Clone()
	return nil
}

// AppendEvent appends an event and evicts the oldest entries beyond
// the cap.
func (s *Store) AppendEvent(_ context.Context, event security.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if overflow := len(s.events) - storage.MaxEventLogEntries; overflow > 0 {
		s.events = append([]security.Event(nil), s.events[overflow:]...)
	}
	return nil
}

// Events returns the buffered events, oldest first.
func (s *Store) Events(_ context.Context) ([]security.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]security.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}
