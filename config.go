package storefront

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopkit/storefront/instrumentation"
	"github.com/shopkit/storefront/security"
)

// Config holds the storefront configuration.
// Structured using composition for better organization and maintainability.
type Config struct {
	// RateLimit configures per-operation throttling.
	RateLimit RateLimitConfig

	// Security configures token lifetime and validation format rules.
	Security SecurityConfig

	// Checkout configures totals and the order processing step.
	Checkout CheckoutConfig

	// Logger for structured logging (optional, uses default if not provided).
	Logger *slog.Logger

	// Instrumentation enables metrics and tracing (optional).
	Instrumentation *instrumentation.Instrumentation

	// Clock overrides the time source, for tests (optional).
	Clock func() time.Time
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Window is the rolling window over which operations are counted.
	// Default: 60 seconds.
	Window time.Duration

	// Quota is the number of accepted calls per operation per window.
	// Default: 10.
	Quota int
}

// SecurityConfig holds token and validation settings
type SecurityConfig struct {
	// TokenMaxAge is how long an issued CSRF token stays valid.
	// Default: 1 hour.
	TokenMaxAge time.Duration

	// ProductIDPattern overrides the product identifier regexp.
	ProductIDPattern string

	// ImageHostPattern overrides the allow-listed image host regexp.
	ImageHostPattern string

	// AlertHook is invoked for high-severity events, throttled.
	// Nil means log-only.
	AlertHook security.AlertFunc
}

// CheckoutConfig holds checkout flow configuration
type CheckoutConfig struct {
	// TaxRate is the flat tax rate applied to the subtotal.
	// Default: 8%.
	TaxRate decimal.Decimal

	// OrderTimeout bounds the external order processing step.
	// Default: 10 seconds.
	OrderTimeout time.Duration
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = security.DefaultWindow
	}
	if c.RateLimit.Quota <= 0 {
		c.RateLimit.Quota = security.DefaultQuota
	}
	if c.Security.TokenMaxAge <= 0 {
		c.Security.TokenMaxAge = security.DefaultTokenMaxAge
	}
	if c.Checkout.TaxRate.IsZero() {
		c.Checkout.TaxRate = defaultTaxRate
	}
	if c.Checkout.OrderTimeout <= 0 {
		c.Checkout.OrderTimeout = defaultOrderTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Validate rejects nonsensical configuration values.
func (c *Config) Validate() error {
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("rate limit window must not be negative")
	}
	if c.RateLimit.Quota < 0 {
		return fmt.Errorf("rate limit quota must not be negative")
	}
	if c.Security.TokenMaxAge < 0 {
		return fmt.Errorf("token max age must not be negative")
	}
	if c.Checkout.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative")
	}
	if c.Checkout.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be a fraction below 1")
	}
	if c.Checkout.OrderTimeout < 0 {
		return fmt.Errorf("order timeout must not be negative")
	}
	return nil
}

var defaultTaxRate = decimal.New(8, -2) // 8%

const defaultOrderTimeout = 10 * time.Second
