package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage"
)

func TestStore_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	loaded, err := store.LoadCart(ctx)
	if err != nil {
		t.Fatalf("LoadCart() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("fresh store should hold an empty cart, got %d items", len(loaded))
	}

	items := cart.Items{{ID: "gid://shopify/Product/1", Quantity: 2}}
	if err := store.SaveCart(ctx, items); err != nil {
		t.Fatalf("SaveCart() error = %v", err)
	}

	loaded, err = store.LoadCart(ctx)
	if err != nil {
		t.Fatalf("LoadCart() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != items[0].ID || loaded[0].Quantity != 2 {
		t.Errorf("LoadCart() = %v, want %v", loaded, items)
	}

	// The stored cart must be isolated from caller mutation.
	items[0].Quantity = 9
	loaded, _ = store.LoadCart(ctx)
	if loaded[0].Quantity != 2 {
		t.Error("stored cart should not share memory with the caller")
	}
}

func TestStore_EventLogCap(t *testing.T) {
	ctx := context.Background()
	store := New()

	total := storage.MaxEventLogEntries + 5
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

	// Oldest evicted first: the first remaining entry is seq 5.
	if got := events[0].Details["seq"]; got != 5 {
		t.Errorf("first remaining seq = %v, want 5", got)
	}
	if got := events[len(events)-1].Details["seq"]; got != total-1 {
		t.Errorf("last seq = %v, want %d", got, total-1)
	}
}

func TestStore_ImplementsStorage(t *testing.T) {
	var _ storage.Store = New()
}

func BenchmarkAppendEvent(b *testing.B) {
	ctx := context.Background()
	store := New()
	for i := 0; i < b.N; i++ {
		_ = store.AppendEvent(ctx, security.Event{Kind: fmt.Sprintf("K%d", i%3)})
	}
}
