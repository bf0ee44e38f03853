package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage"
)

// testStore connects to a local Redis instance. Tests are skipped when
// no server is reachable. Each test gets a unique key prefix for
// isolation.
func testStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := New(ctx, Config{
		Address:   addr,
		KeyPrefix: fmt.Sprintf("storefronttest:%s:", t.Name()),
	})
	if err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		store.client.Del(ctx, store.cartKey(), store.logKey())
		store.Close()
	})
	return store
}

func TestStore_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	loaded, err := store.LoadCart(ctx)
	if err != nil {
		t.Fatalf("LoadCart() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("missing key should load as an empty cart, got %d items", len(loaded))
	}

	items := cart.Items{{ID: "gid://shopify/Product/1", Quantity: 3}}
	if err := store.SaveCart(ctx, items); err != nil {
		t.Fatalf("SaveCart() error = %v", err)
	}

	loaded, err = store.LoadCart(ctx)
	if err != nil {
		t.Fatalf("LoadCart() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != items[0].ID || loaded[0].Quantity != 3 {
		t.Errorf("LoadCart() = %v, want %v", loaded, items)
	}
}

func TestStore_EventLogOrderAndCap(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	total := storage.MaxEventLogEntries + 2
	for i := 0; i < total; i++ {
		err := store.AppendEvent(ctx, security.Event{
			Kind:    security.EventInvalidCart,
			Details: map[string]any{"seq": i},
		})
		if err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}

	events, err := store.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != storage.MaxEventLogEntries {
		t.Fatalf("events = %d, want %d", len(events), storage.MaxEventLogEntries)
	}

	// Oldest first, oldest evicted. JSON numbers decode as float64.
	if got := events[0].Details["seq"]; got != float64(2) {
		t.Errorf("first remaining seq = %v, want 2", got)
	}
	if got := events[len(events)-1].Details["seq"]; got != float64(total-1) {
		t.Errorf("last seq = %v, want %d", got, total-1)
	}
}
