package storefront

import "github.com/shopkit/storefront/cart"

// Operation-level errors surfaced by the cart store and checkout flow.
// Messages are user-facing; codes are stable for programmatic matching
// with errors.Is.
var (
	// ErrRateLimited indicates the operation was throttled and not performed
	ErrRateLimited = cart.NewError(cart.ErrorCodeRateLimited, "Too many requests. Please slow down and try again.")

	// ErrInvalidItem indicates the candidate item failed validation
	ErrInvalidItem = cart.NewError(cart.ErrorCodeInvalidItem, "This item cannot be added to the cart.")

	// ErrQuantityLimit indicates the mutation would exceed the per-item quantity cap
	ErrQuantityLimit = cart.NewError(cart.ErrorCodeQuantityLimit, "Maximum quantity per item reached.")

	// ErrCartFull indicates the cart already holds the maximum number of distinct items
	ErrCartFull = cart.NewError(cart.ErrorCodeCartFull, "The cart is full.")

	// ErrItemNotFound indicates the referenced item is not in the cart
	ErrItemNotFound = cart.NewError(cart.ErrorCodeItemNotFound, "This item is not in the cart.")

	// ErrEmptyCart indicates checkout was started with nothing to buy
	ErrEmptyCart = cart.NewError(cart.ErrorCodeEmpty, "Your cart is empty.")

	// ErrInvalidState indicates a checkout transition from the wrong step
	ErrInvalidState = cart.NewError(cart.ErrorCodeInvalidState, "This action is not available right now.")

	// ErrOrderPending indicates order completion was re-triggered while in flight
	ErrOrderPending = cart.NewError(cart.ErrorCodeOrderPending, "Your order is already being processed.")

	// ErrOrderFailed indicates the external order processing step rejected
	ErrOrderFailed = cart.NewError(cart.ErrorCodeOrderFailed, "We could not process your order. Please try again.")
)
