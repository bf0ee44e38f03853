package cart

import "fmt"

// Error codes as constants
const (
	ErrorCodeNotList       = "cart_not_list"
	ErrorCodeEmpty         = "cart_empty"
	ErrorCodeTooLarge      = "cart_too_large"
	ErrorCodeInvalidItems  = "cart_invalid_items"
	ErrorCodeInvalidItem   = "invalid_item"
	ErrorCodeQuantityLimit = "quantity_limit"
	ErrorCodeCartFull      = "cart_full"
	ErrorCodeItemNotFound  = "item_not_found"
	ErrorCodeRateLimited   = "rate_limited"
	ErrorCodeMissingField  = "missing_field"
	ErrorCodeInvalidState  = "invalid_state"
	ErrorCodeOrderPending  = "order_pending"
	ErrorCodeOrderFailed   = "order_failed"
)

// Error is the typed error returned by cart validation and by the cart
// and checkout operations. Message is safe to surface to a user.
type Error struct {
	Code    string // stable machine-readable code
	Message string // human-readable, user-facing description
	Field   string // offending field, when the failure is field-specific
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new cart error
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewFieldError creates a new cart error scoped to a single field
func NewFieldError(code, message, field string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// Structural cart validation errors. ValidateCart returns exactly one of
// these; they are distinct values so callers can match with errors.Is.
var (
	// ErrNotList indicates the candidate cart is not a sequence at all
	ErrNotList = NewError(ErrorCodeNotList, "Cart must be a list of items")

	// ErrEmpty indicates the candidate cart holds no items
	ErrEmpty = NewError(ErrorCodeEmpty, "Cart is empty")

	// ErrTooLarge indicates the candidate cart exceeds MaxItems entries
	ErrTooLarge = NewError(ErrorCodeTooLarge, "Cart exceeds the maximum number of items")

	// ErrInvalidItems indicates one or more elements failed item validation
	ErrInvalidItems = NewError(ErrorCodeInvalidItems, "Invalid items detected in cart")
)
