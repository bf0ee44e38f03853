// Package storage defines interfaces for persisting the cart and the
// security event log under well-known keys. It supports various
// backend implementations; memory, file and redis are provided.
package storage

import (
	"context"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/security"
)

const (
	// DefaultCartKey is the well-known key the cart is persisted under.
	// Any collaborator sharing the key can read the JSON item sequence.
	DefaultCartKey = "storefront_cart"

	// DefaultEventLogKey is the well-known key for the security log.
	DefaultEventLogKey = "storefront_security_log"

	// MaxEventLogEntries caps the security log; the oldest entries are
	// evicted first.
	MaxEventLogEntries = 100
)

// CartStore persists the full cart. SaveCart replaces the stored cart
// atomically: a concurrent LoadCart observes either the previous or
// the new sequence, never a partial write.
type CartStore interface {
	// LoadCart returns the persisted cart, or an empty cart when
	// nothing is stored. A corrupt payload returns an error.
	LoadCart(ctx context.Context) (cart.Items, error)

	// SaveCart replaces the persisted cart.
	SaveCart(ctx context.Context, items cart.Items) error
}

// EventLog persists the capped security event buffer. Each append is a
// single atomic read-modify-write that also enforces the cap.
type EventLog interface {
	security.EventStore

	// Events returns the buffered events, oldest first. A corrupt
	// buffer is treated as empty, not an error.
	Events(ctx context.Context) ([]security.Event, error)
}

// Store combines cart and event log persistence.
type Store interface {
	CartStore
	EventLog
}
