// Package storefront implements the cart, checkout and client-side
// security layer of a static storefront: per-operation rate limiting,
// cart validation and sanitization, CSRF token lifecycle, a durably
// persisted cart with invariant enforcement, and a four-step checkout
// flow. Services are explicitly constructed and injected; there are no
// package-level singletons.
package storefront

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/instrumentation"
	"github.com/shopkit/storefront/security"
)

// Manager is the security facade the rest of the system calls. It
// composes the rate limiter, validator, auditor and token issuer, and
// converts every internal failure into a boolean or typed error; no
// panic crosses this boundary.
type Manager struct {
	limiter   *security.RateLimiter
	validator *security.Validator
	auditor   *security.Auditor
	tokens    *security.TokenIssuer
	maxAge    time.Duration
	metrics   *instrumentation.Metrics
}

// NewManager creates a security manager. Events are durably appended to
// the given event log; pass nil to keep them log-only.
func NewManager(cfg Config, events security.EventStore) (*Manager, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	auditor := security.NewAuditor(events, cfg.Logger,
		security.WithAlertHook(cfg.Security.AlertHook),
		security.WithAuditClock(cfg.Clock),
	)
	validator, err := security.NewValidator(auditor, security.ValidatorConfig{
		ProductIDPattern: cfg.Security.ProductIDPattern,
		ImageHostPattern: cfg.Security.ImageHostPattern,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid validation pattern: %w", err)
	}

	m := &Manager{
		limiter: security.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Quota,
			auditor, cfg.Logger, security.WithRateLimiterClock(cfg.Clock)),
		validator: validator,
		auditor:   auditor,
		tokens:    security.NewTokenIssuer(auditor, security.WithTokenClock(cfg.Clock)),
		maxAge:    cfg.Security.TokenMaxAge,
	}
	if cfg.Instrumentation != nil {
		m.metrics = cfg.Instrumentation.Metrics()
		m.metrics.TokensIssued.Add(context.Background(), 1)
	}
	return m, nil
}

// IssueToken returns the CSRF token minted for this manager instance.
func (m *Manager) IssueToken() string {
	return m.tokens.Token()
}

// MetaTag renders the issued token as a page-level meta tag for
// server-rendered markup to embed.
func (m *Manager) MetaTag() template.HTML {
	tag := fmt.Sprintf(`<meta name="csrf-token" content="%s">`,
		template.HTMLEscapeString(m.tokens.Token()))
	return template.HTML(tag)
}

// VerifyToken checks a token against the configured max age.
func (m *Manager) VerifyToken(token string) bool {
	return m.VerifyTokenWithMaxAge(token, m.maxAge)
}

// VerifyTokenWithMaxAge checks a token against a custom max age.
// Rejections are recorded; the caller must re-issue or abort.
func (m *Manager) VerifyTokenWithMaxAge(token string, maxAge time.Duration) bool {
	ok := m.tokens.Verify(token, maxAge)
	if !ok && m.metrics != nil {
		m.metrics.TokensRejected.Add(context.Background(), 1)
	}
	return ok
}

// CheckRateLimit reports whether the named operation is currently
// allowed. A rejection is recorded as a high-severity event.
func (m *Manager) CheckRateLimit(operation string) bool {
	ok := m.limiter.Allow(operation)
	if !ok && m.metrics != nil {
		m.metrics.RateLimitExceeded.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("operation", operation)))
	}
	return ok
}

// ValidateCartItem returns the item if every field rule passes, nil
// otherwise.
func (m *Manager) ValidateCartItem(candidate cart.Item) *cart.Item {
	return m.validator.ValidateItem(candidate)
}

// ValidateCart validates a whole candidate cart.
func (m *Manager) ValidateCart(candidate cart.Items) (cart.Items, error) {
	return m.validator.ValidateCart(candidate)
}

// Record delegates to the event logger and feeds the observability
// sink.
func (m *Manager) Record(kind string, details map[string]any) {
	event := m.auditor.Record(kind, details)
	if m.metrics != nil {
		m.metrics.SecurityEventsTotal.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("kind", event.Kind),
				attribute.String("severity", string(event.Severity)),
			))
	}
}

// RateLimiterStats exposes window occupancy for monitoring.
func (m *Manager) RateLimiterStats() security.Stats {
	return m.limiter.GetStats()
}
