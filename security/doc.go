// Package security provides the security mechanisms for the storefront:
// per-operation rate limiting, cart item validation and text
// sanitization, CSRF token issuance and verification, security event
// auditing with a durable capped buffer, and optional encryption of
// persisted state.
//
// The components in this package are leaves: they depend only on the
// cart item model and on interfaces they declare themselves. The
// storefront.Manager facade composes them for the rest of the system.
package security
