package storefront

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/internal/testutil"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage/memory"
)

func newTestCart(t *testing.T, cfg Config) (*CartService, *memory.Store) {
	t.Helper()
	store := memory.New()
	m := newTestManager(t, cfg, store)
	svc, err := NewCartService(context.Background(), m, store, cfg)
	if err != nil {
		t.Fatalf("NewCartService() error = %v", err)
	}
	return svc, store
}

// roomyConfig leaves plenty of rate limit headroom for multi-mutation
// tests.
func roomyConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit.Quota = 1000
	return cfg
}

func TestCartService_AddMergesDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())

	item := testutil.ValidItem(1)
	item.Quantity = 3
	if err := svc.Add(ctx, item); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := svc.Add(ctx, item); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	items := svc.Items()
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1 merged entry", len(items))
	}
	if items[0].Quantity != 6 {
		t.Errorf("Quantity = %d, want 6", items[0].Quantity)
	}
}

func TestCartService_AddQuantityCapAborts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())

	item := testutil.ValidItem(1)
	item.Quantity = 6
	if err := svc.Add(ctx, item); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// 6+6 exceeds the cap; the cart must be left at 6, not clamped.
	err := svc.Add(ctx, item)
	if !errors.Is(err, ErrQuantityLimit) {
		t.Fatalf("Add() error = %v, want ErrQuantityLimit", err)
	}
	if got := svc.Items()[0].Quantity; got != 6 {
		t.Errorf("Quantity = %d, want unchanged 6", got)
	}
}

func TestCartService_AddRejectsInvalidItem(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestCart(t, roomyConfig())

	bad := testutil.ValidItem(1)
	bad.Price = bad.Price.Neg()
	err := svc.Add(ctx, bad)
	if !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Add() error = %v, want ErrInvalidItem", err)
	}
	if !svc.IsEmpty() {
		t.Error("a rejected item must not enter the cart")
	}

	events, _ := store.Events(ctx)
	if len(events) != 1 || events[0].Kind != security.EventInvalidProductPrice {
		t.Errorf("events = %+v, want one %s", events, security.EventInvalidProductPrice)
	}
}

func TestCartService_DistinctItemCap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())

	for i := 1; i <= cart.MaxItems; i++ {
		if err := svc.Add(ctx, testutil.ValidItem(i)); err != nil {
			t.Fatalf("Add(%d) error = %v", i, err)
		}
	}

	err := svc.Add(ctx, testutil.ValidItem(cart.MaxItems+1))
	if !errors.Is(err, ErrCartFull) {
		t.Fatalf("Add() error = %v, want ErrCartFull", err)
	}
	if svc.Len() != cart.MaxItems {
		t.Errorf("Len() = %d, want %d intact", svc.Len(), cart.MaxItems)
	}
}

func TestCartService_SetQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())
	item := testutil.ValidItem(1)
	if err := svc.Add(ctx, item); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetQuantity(ctx, item.ID, cart.MaxQuantity+1); !errors.Is(err, ErrQuantityLimit) {
		t.Errorf("SetQuantity(11) error = %v, want ErrQuantityLimit", err)
	}
	if err := svc.SetQuantity(ctx, "gid://shopify/Product/404", 2); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("SetQuantity(missing) error = %v, want ErrItemNotFound", err)
	}

	if err := svc.SetQuantity(ctx, item.ID, 5); err != nil {
		t.Fatalf("SetQuantity(5) error = %v", err)
	}
	if got := svc.Items()[0].Quantity; got != 5 {
		t.Errorf("Quantity = %d, want 5", got)
	}

	// Zero removes the line entirely.
	if err := svc.SetQuantity(ctx, item.ID, 0); err != nil {
		t.Fatalf("SetQuantity(0) error = %v", err)
	}
	if !svc.IsEmpty() {
		t.Error("SetQuantity(0) should remove the item")
	}
}

func TestCartService_RemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())
	if err := svc.Add(ctx, testutil.ValidItem(1)); err != nil {
		t.Fatal(err)
	}

	if err := svc.Remove(ctx, "gid://shopify/Product/404"); err != nil {
		t.Errorf("Remove(absent) error = %v, want nil", err)
	}
	if svc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", svc.Len())
	}
}

func TestCartService_RateLimitLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.RateLimit.Quota = 2
	svc, _ := newTestCart(t, cfg)

	if err := svc.Add(ctx, testutil.ValidItem(1)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Add(ctx, testutil.ValidItem(2)); err != nil {
		t.Fatal(err)
	}

	err := svc.Add(ctx, testutil.ValidItem(3))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Add() error = %v, want ErrRateLimited", err)
	}
	if svc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", svc.Len())
	}
}

func TestCartService_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := roomyConfig()
	store := memory.New()

	first := newTestManager(t, cfg, store)
	svc, err := NewCartService(ctx, first, store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Add(ctx, testutil.ValidItem(1)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Add(ctx, testutil.ValidItem(2)); err != nil {
		t.Fatal(err)
	}

	// A fresh service over the same store restores the cart.
	second := newTestManager(t, cfg, store)
	restored, err := NewCartService(ctx, second, store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Len() != 2 {
		t.Errorf("restored Len() = %d, want 2", restored.Len())
	}
}

func TestCartService_RestoreRejectsTamperedCart(t *testing.T) {
	ctx := context.Background()
	cfg := roomyConfig()
	store := memory.New()

	tampered := testutil.ValidCart(2)
	tampered[1].ID = "javascript:alert(1)"
	if err := store.SaveCart(ctx, tampered); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(t, cfg, store)
	svc, err := NewCartService(ctx, m, store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !svc.IsEmpty() {
		t.Error("a tampered persisted cart must be discarded in full")
	}

	persisted, _ := store.LoadCart(ctx)
	if len(persisted) != 0 {
		t.Errorf("persisted cart = %d items, want cleared", len(persisted))
	}

	events, _ := store.Events(ctx)
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	want := []string{security.EventInvalidProductID, security.EventInvalidCart, security.EventCartRestoreRejected}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("event kinds = %v, want %v", kinds, want)
	}
}

// failingCartStore simulates an unavailable persistence backend.
type failingCartStore struct{}

func (failingCartStore) LoadCart(context.Context) (cart.Items, error) {
	return nil, errors.New("backend unavailable")
}

func (failingCartStore) SaveCart(context.Context, cart.Items) error {
	return errors.New("backend unavailable")
}

func TestCartService_StorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	cfg := roomyConfig()
	events := memory.New()
	m := newTestManager(t, cfg, events)

	svc, err := NewCartService(ctx, m, failingCartStore{}, cfg)
	if err != nil {
		t.Fatalf("NewCartService() error = %v", err)
	}

	// Mutations succeed against memory even when persistence fails.
	if err := svc.Add(ctx, testutil.ValidItem(1)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if svc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", svc.Len())
	}

	recorded, _ := events.Events(ctx)
	var failures int
	for _, e := range recorded {
		if e.Kind == security.EventStorageFailure {
			failures++
		}
	}
	if failures != 2 { // one on load, one on save
		t.Errorf("storage failure events = %d, want 2", failures)
	}
}

func TestCartService_SubscriberMayReenter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())

	var observed []int
	svc.OnChange(func(cart.Items) {
		observed = append(observed, svc.Len())
	})

	done := make(chan error, 1)
	go func() {
		done <- svc.Add(ctx, testutil.ValidItem(1))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Add() did not return with a reentrant subscriber")
	}
	if len(observed) != 1 || observed[0] != 1 {
		t.Errorf("observed = %v, want [1]", observed)
	}
}

func TestCartService_OnChange(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCart(t, roomyConfig())

	var snapshots []cart.Items
	svc.OnChange(func(items cart.Items) {
		snapshots = append(snapshots, items)
	})

	if err := svc.Add(ctx, testutil.ValidItem(1)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snapshots))
	}
	if len(snapshots[0]) != 1 || len(snapshots[1]) != 0 {
		t.Errorf("snapshot sizes = %d, %d, want 1, 0", len(snapshots[0]), len(snapshots[1]))
	}
}
