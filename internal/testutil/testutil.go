// Package testutil provides testing utilities and helpers for the
// storefront library.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopkit/storefront/cart"
)

// MockTime provides a controllable time source for deterministic testing
type MockTime struct {
	now time.Time
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	return m.now
}

// Advance moves the mock time forward by the given duration
func (m *MockTime) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.now = t
}

// ValidItem returns a cart item that passes every validation rule.
func ValidItem(n int) cart.Item {
	return cart.Item{
		ID:       fmt.Sprintf("gid://shopify/Product/%d", n),
		Title:    fmt.Sprintf("Test Product %d", n),
		Price:    decimal.NewFromFloat(29.99),
		Image:    "https://cdn.shopify.com/image.jpg",
		Quantity: 1,
	}
}

// ValidCart returns a cart of n distinct valid items.
func ValidCart(n int) cart.Items {
	items := make(cart.Items, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, ValidItem(i))
	}
	return items
}

// RandomQuantity returns a quantity within the valid range.
func RandomQuantity() int {
	return 1 + rand.Intn(cart.MaxQuantity)
}
