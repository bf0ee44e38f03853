package security

import "time"

// Event kind constants for security audit logging.
// These constants ensure consistency across the codebase and prevent typos
// when recording security-relevant events.
const (
	// Validation events

	// EventInvalidProductID is recorded when an item's product identifier fails the ID pattern
	EventInvalidProductID = "INVALID_PRODUCT_ID"

	// EventInvalidProductTitle is recorded when an item's title fails the length or character rules
	EventInvalidProductTitle = "INVALID_PRODUCT_TITLE"

	// EventInvalidProductPrice is recorded when an item's price is outside the allowed range
	EventInvalidProductPrice = "INVALID_PRODUCT_PRICE"

	// EventInvalidProductImage is recorded when an item's image URL is not HTTPS on an allowed host
	EventInvalidProductImage = "INVALID_PRODUCT_IMAGE"

	// EventInvalidProductQuantity is recorded when an item's quantity is outside the allowed range
	EventInvalidProductQuantity = "INVALID_PRODUCT_QUANTITY"

	// EventInvalidCart is recorded when a whole cart fails structural validation
	EventInvalidCart = "INVALID_CART"

	// EventCartRestoreRejected is recorded when a persisted cart fails validation on load
	// and is discarded in full rather than partially repaired
	EventCartRestoreRejected = "CART_RESTORE_REJECTED"

	// Token events

	// EventTokenInvalid is recorded when a CSRF token fails to decode or parse
	EventTokenInvalid = "CSRF_TOKEN_INVALID"

	// EventTokenExpired is recorded when a CSRF token is older than the allowed max age
	EventTokenExpired = "CSRF_TOKEN_EXPIRED"

	// Throttling events

	// EventRateLimitExceeded is recorded when an operation exceeds its per-window quota
	EventRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// EventClockAnomaly is recorded when the rate limiter observes an unusable clock
	// reading and fails open
	EventClockAnomaly = "CLOCK_ANOMALY"

	// Storage and checkout events

	// EventStorageFailure is recorded when a durable read or write fails and is
	// swallowed rather than surfaced to the caller
	EventStorageFailure = "STORAGE_FAILURE"

	// EventCheckoutStarted is recorded when a checkout session begins
	EventCheckoutStarted = "CHECKOUT_STARTED"

	// EventOrderCompleted is recorded when an order is processed successfully
	EventOrderCompleted = "ORDER_COMPLETED"

	// EventOrderFailed is recorded when the external order processing step rejects
	EventOrderFailed = "ORDER_FAILED"
)

// Severity classifies how serious a security event is.
type Severity string

const (
	// SeverityHigh marks events that indicate an attack or a hard security failure
	SeverityHigh Severity = "HIGH"

	// SeverityMedium marks all other security-relevant events
	SeverityMedium Severity = "MEDIUM"
)

// highSeverityKinds is the static classification table. Every kind not
// listed here is SeverityMedium.
var highSeverityKinds = map[string]struct{}{
	EventTokenInvalid:        {},
	EventTokenExpired:        {},
	EventRateLimitExceeded:   {},
	EventInvalidProductID:    {},
	EventInvalidProductPrice: {},
}

// Classify returns the severity for an event kind.
func Classify(kind string) Severity {
	if _, ok := highSeverityKinds[kind]; ok {
		return SeverityHigh
	}
	return SeverityMedium
}

// Event is a recorded security event. Events are kept in a capped
// durable buffer and emitted to the observability sink.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Severity  Severity       `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
}
