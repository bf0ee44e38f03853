// Package cart defines the cart item model and the structural bounds
// shared by the validation, storage and checkout layers.
package cart

import (
	"github.com/shopspring/decimal"
)

const (
	// MaxQuantity is the maximum quantity of a single line item.
	MaxQuantity = 10

	// MaxItems is the maximum number of distinct items in a cart.
	MaxItems = 50

	// MaxTitleLength is the maximum length of an item title.
	MaxTitleLength = 100
)

// Item is a single cart line. An item only belongs in a cart if every
// field independently satisfies the validation rules in the security
// package.
type Item struct {
	// ID is the opaque product identifier, e.g. "gid://shopify/Product/1".
	ID string `json:"id"`

	// Title is the plain-text product title, at most MaxTitleLength characters.
	Title string `json:"title"`

	// Price is the unit price. Valid prices are strictly between 0 and 10000.
	Price decimal.Decimal `json:"price"`

	// Image is the HTTPS product image URL, restricted to allow-listed hosts.
	Image string `json:"image"`

	// Quantity is the line quantity, between 1 and MaxQuantity inclusive.
	Quantity int `json:"quantity"`
}

// LineTotal returns price multiplied by quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Items is an ordered cart, unique by item ID.
type Items []Item

// IndexOf returns the position of the item with the given ID, or -1.
func (items Items) IndexOf(id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing storage with the receiver.
func (items Items) Clone() Items {
	if items == nil {
		return nil
	}
	out := make(Items, len(items))
	copy(out, items)
	return out
}

// Subtotal returns the sum of all line totals.
func (items Items) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
