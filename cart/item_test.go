package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestItems_IndexOf(t *testing.T) {
	items := Items{
		{ID: "gid://shopify/Product/1"},
		{ID: "gid://shopify/Product/2"},
	}

	if got := items.IndexOf("gid://shopify/Product/2"); got != 1 {
		t.Errorf("IndexOf() = %d, want 1", got)
	}
	if got := items.IndexOf("gid://shopify/Product/9"); got != -1 {
		t.Errorf("IndexOf() = %d, want -1", got)
	}
}

func TestItems_Clone(t *testing.T) {
	items := Items{{ID: "gid://shopify/Product/1", Quantity: 1}}

	clone := items.Clone()
	clone[0].Quantity = 9

	if items[0].Quantity != 1 {
		t.Error("mutating the clone must not affect the original")
	}

	if Items(nil).Clone() != nil {
		t.Error("Clone() of nil should stay nil")
	}
}

func TestItems_Subtotal(t *testing.T) {
	items := Items{
		{Price: decimal.NewFromFloat(29.99), Quantity: 2},
		{Price: decimal.NewFromFloat(10.50), Quantity: 1},
	}

	want := decimal.NewFromFloat(70.48)
	if got := items.Subtotal(); !got.Equal(want) {
		t.Errorf("Subtotal() = %s, want %s", got, want)
	}

	if !Items(nil).Subtotal().IsZero() {
		t.Error("Subtotal() of an empty cart should be zero")
	}
}

func TestError_Format(t *testing.T) {
	plain := NewError(ErrorCodeEmpty, "Cart is empty")
	if plain.Error() != "cart_empty: Cart is empty" {
		t.Errorf("Error() = %q", plain.Error())
	}

	withField := NewFieldError(ErrorCodeMissingField, "Please provide your city.", "City")
	if withField.Error() != `missing_field: Please provide your city. (field "City")` {
		t.Errorf("Error() = %q", withField.Error())
	}
}

func TestError_SentinelsAreDistinct(t *testing.T) {
	sentinels := []*Error{ErrNotList, ErrEmpty, ErrTooLarge, ErrInvalidItems}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %d and %d should be distinct", i, j)
			}
		}
	}
}
