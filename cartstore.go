package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/instrumentation"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage"
)

// Operation names used for rate limiting cart mutations.
const (
	opCartAdd    = "cart_add"
	opCartRemove = "cart_remove"
	opCartUpdate = "cart_update"
	opCartClear  = "cart_clear"
	opCheckout   = "checkout_commit"
)

// CartService owns the authoritative in-memory cart and persists every
// successful mutation. Each mutating operation is rate limited and
// validated before any state changes; a rejected operation leaves both
// memory and durable storage untouched.
type CartService struct {
	mu          sync.Mutex
	manager     *Manager
	store       storage.CartStore
	items       cart.Items
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	subscribers []func(cart.Items)
}

// NewCartService creates the cart store and restores the persisted
// cart. A persisted cart that fails validation is discarded in full
// and the event recorded; a storage failure starts with an empty cart.
func NewCartService(ctx context.Context, manager *Manager, store storage.CartStore, cfg Config) (*CartService, error) {
	cfg.applyDefaults()
	c := &CartService{
		manager: manager,
		store:   store,
		logger:  cfg.Logger,
	}
	if cfg.Instrumentation != nil {
		c.metrics = cfg.Instrumentation.Metrics()
		if err := cfg.Instrumentation.RegisterSizeCallbacks(
			func() int64 { return int64(c.Len()) },
			func() int64 { return int64(manager.RateLimiterStats().Recorded) },
		); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	persisted, err := store.LoadCart(ctx)
	c.observeStorage(ctx, "load_cart", start, err)
	if err != nil {
		manager.Record(security.EventStorageFailure, map[string]any{
			"operation": "load_cart", "error": err.Error(),
		})
		return c, nil
	}
	if len(persisted) == 0 {
		return c, nil
	}

	validated, err := manager.ValidateCart(persisted)
	if err != nil {
		manager.Record(security.EventCartRestoreRejected, map[string]any{
			"items": len(persisted), "reason": err.Error(),
		})
		c.persist(ctx, nil)
		return c, nil
	}
	c.items = validated
	return c, nil
}

// Add puts an item in the cart. If an item with the same ID exists the
// quantities are summed; exceeding the per-item cap or the cart size
// cap aborts without mutating.
func (c *CartService) Add(ctx context.Context, candidate cart.Item) error {
	if !c.allow(opCartAdd) {
		return ErrRateLimited
	}
	item := c.manager.ValidateCartItem(candidate)
	if item == nil {
		c.deny(opCartAdd)
		return ErrInvalidItem
	}

	c.mu.Lock()
	next := c.items.Clone()
	if i := next.IndexOf(item.ID); i >= 0 {
		merged := next[i].Quantity + item.Quantity
		if merged > cart.MaxQuantity {
			c.mu.Unlock()
			c.deny(opCartAdd)
			return ErrQuantityLimit
		}
		next[i].Quantity = merged
	} else {
		if len(next) >= cart.MaxItems {
			c.mu.Unlock()
			c.deny(opCartAdd)
			return ErrCartFull
		}
		next = append(next, *item)
	}
	notify := c.commit(ctx, opCartAdd, next)
	c.mu.Unlock()
	notify()
	return nil
}

// Remove deletes an item by ID. Removing an absent item is a no-op.
func (c *CartService) Remove(ctx context.Context, id string) error {
	if !c.allow(opCartRemove) {
		return ErrRateLimited
	}

	c.mu.Lock()
	i := c.items.IndexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	next := c.items.Clone()
	next = append(next[:i], next[i+1:]...)
	notify := c.commit(ctx, opCartRemove, next)
	c.mu.Unlock()
	notify()
	return nil
}

// SetQuantity updates an item's quantity. Zero removes the item;
// exceeding the per-item cap aborts without mutating.
func (c *CartService) SetQuantity(ctx context.Context, id string, quantity int) error {
	if !c.allow(opCartUpdate) {
		return ErrRateLimited
	}
	if quantity > cart.MaxQuantity {
		c.deny(opCartUpdate)
		return ErrQuantityLimit
	}

	c.mu.Lock()
	i := c.items.IndexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrItemNotFound
	}
	next := c.items.Clone()
	if quantity <= 0 {
		next = append(next[:i], next[i+1:]...)
	} else {
		next[i].Quantity = quantity
	}
	notify := c.commit(ctx, opCartUpdate, next)
	c.mu.Unlock()
	notify()
	return nil
}

// Clear empties the cart.
func (c *CartService) Clear(ctx context.Context) error {
	if !c.allow(opCartClear) {
		return ErrRateLimited
	}
	c.mu.Lock()
	notify := c.commit(ctx, opCartClear, nil)
	c.mu.Unlock()
	notify()
	return nil
}

// Items returns a copy of the cart.
func (c *CartService) Items() cart.Items {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Clone()
}

// Len returns the number of distinct items.
func (c *CartService) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IsEmpty reports whether the cart holds no items.
func (c *CartService) IsEmpty() bool {
	return c.Len() == 0
}

// OnChange registers an observer invoked with a snapshot after every
// successful mutation. A rendering adapter subscribes here instead of
// reaching into cart state. Callbacks run outside the service lock and
// may call back into the service.
func (c *CartService) OnChange(fn func(cart.Items)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// reset empties the cart without rate limiting. Used internally when a
// committed order clears the cart or a restored cart is discarded.
func (c *CartService) reset(ctx context.Context) {
	c.mu.Lock()
	notify := c.commit(ctx, opCheckout, nil)
	c.mu.Unlock()
	notify()
}

// commit applies a mutation to memory and persists it. Caller holds the
// lock. A persist failure is logged and swallowed; the in-memory cart
// remains authoritative. The returned function delivers the snapshot to
// observers and must be called after the lock is released, so a
// subscriber may call back into the service.
func (c *CartService) commit(ctx context.Context, operation string, next cart.Items) func() {
	c.items = next
	c.persist(ctx, next)
	c.logger.Debug("Cart mutation applied", "operation", operation, "items", len(next))
	if c.metrics != nil {
		c.metrics.CartMutationsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("operation", operation)))
	}
	snapshot := next.Clone()
	subscribers := append(([]func(cart.Items))(nil), c.subscribers...)
	return func() {
		for _, fn := range subscribers {
			fn(snapshot)
		}
	}
}

func (c *CartService) persist(ctx context.Context, items cart.Items) {
	start := time.Now()
	err := c.store.SaveCart(ctx, items)
	c.observeStorage(ctx, "save_cart", start, err)
	if err != nil {
		c.manager.Record(security.EventStorageFailure, map[string]any{
			"operation": "save_cart", "error": err.Error(),
		})
	}
}

func (c *CartService) observeStorage(ctx context.Context, operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	)
	c.metrics.StorageOperationsTotal.Add(ctx, 1, attrs)
	c.metrics.StorageOperationDuration.Record(ctx,
		float64(time.Since(start).Microseconds())/1000, attrs)
}

func (c *CartService) allow(operation string) bool {
	if c.manager.CheckRateLimit(operation) {
		return true
	}
	c.deny(operation)
	return false
}

func (c *CartService) deny(operation string) {
	if c.metrics != nil {
		c.metrics.CartMutationsDenied.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("operation", operation)))
	}
}
