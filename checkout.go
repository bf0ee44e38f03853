package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/instrumentation"
	"github.com/shopkit/storefront/security"
)

// Step is a checkout flow state.
type Step string

const (
	// StepCart is the initial state, reviewing the cart
	StepCart Step = "cart"

	// StepInfo collects the customer details
	StepInfo Step = "info"

	// StepPayment awaits explicit order completion
	StepPayment Step = "payment"

	// StepConfirmation is the terminal state of a completed session
	StepConfirmation Step = "confirmation"
)

// CustomerInfo holds the checkout form fields. All fields are required
// before the flow advances from info to payment.
type CustomerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

// customerFieldMessages maps struct fields to user-facing messages.
var customerFieldMessages = map[string]string{
	"Email":     "Please provide a valid email address.",
	"FirstName": "Please provide your first name.",
	"LastName":  "Please provide your last name.",
	"Address":   "Please provide your street address.",
	"City":      "Please provide your city.",
	"State":     "Please provide your state or province.",
	"Zip":       "Please provide your postal code.",
	"Country":   "Please provide your country.",
}

// Order is the immutable snapshot captured at order completion. Later
// cart mutations do not affect it.
type Order struct {
	Number   string          `json:"orderNumber"`
	Date     time.Time       `json:"date"`
	Items    cart.Items      `json:"items"`
	Customer CustomerInfo    `json:"customer"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Totals holds freshly computed cart totals.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// OrderProcessor is the external order and payment collaborator. The
// contract is submit once, await success or failure; the flow never
// retries automatically.
type OrderProcessor interface {
	Process(ctx context.Context, order *Order) error
}

// OrderProcessorFunc adapts a function to the OrderProcessor interface.
type OrderProcessorFunc func(ctx context.Context, order *Order) error

// Process implements OrderProcessor
func (f OrderProcessorFunc) Process(ctx context.Context, order *Order) error {
	return f(ctx, order)
}

// Checkout drives the four-step checkout state machine over a snapshot
// of the cart taken when the session starts. Cart mutations after that
// point do not affect the in-progress session.
type Checkout struct {
	mu        sync.Mutex
	manager   *Manager
	cart      *CartService
	processor OrderProcessor
	validate  *validator.Validate
	cfg       CheckoutConfig
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	tracer    trace.Tracer
	now       func() time.Time

	step     Step
	items    cart.Items
	customer CustomerInfo
	order    *Order
	pending  bool
}

// NewCheckout creates a checkout flow over the given cart.
func NewCheckout(manager *Manager, cartSvc *CartService, processor OrderProcessor, cfg Config) *Checkout {
	cfg.applyDefaults()
	c := &Checkout{
		manager:   manager,
		cart:      cartSvc,
		processor: processor,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		cfg:       cfg.Checkout,
		logger:    cfg.Logger,
		now:       cfg.Clock,
		step:      StepCart,
	}
	if cfg.Instrumentation != nil {
		c.metrics = cfg.Instrumentation.Metrics()
		c.tracer = cfg.Instrumentation.Tracer("checkout")
	}
	return c
}

// Step returns the current flow state.
func (c *Checkout) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Items returns the session's cart snapshot.
func (c *Checkout) Items() cart.Items {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Clone()
}

// Order returns the completed order snapshot, or nil before completion.
func (c *Checkout) Order() *Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// Start begins a session, moving cart to info. It aborts with
// ErrEmptyCart when there is nothing to buy. The cart contents are
// copied here; the session is detached from later mutations.
func (c *Checkout) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepCart {
		return ErrInvalidState
	}
	snapshot := c.cart.Items()
	if len(snapshot) == 0 {
		return ErrEmptyCart
	}
	c.items = snapshot
	c.transition(StepInfo)
	c.manager.Record(security.EventCheckoutStarted, map[string]any{
		"items": len(snapshot),
	})
	return nil
}

// SubmitCustomerInfo validates the customer form and advances info to
// payment. A missing or malformed field aborts with a field-specific
// message and the flow stays on info. Free-text fields are sanitized
// before they are kept.
func (c *Checkout) SubmitCustomerInfo(info CustomerInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepInfo {
		return ErrInvalidState
	}

	info = sanitizeCustomerInfo(info)
	if err := c.validate.Struct(info); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			msg, ok := customerFieldMessages[field]
			if !ok {
				msg = fmt.Sprintf("Please provide %s.", strings.ToLower(field))
			}
			return cart.NewFieldError(cart.ErrorCodeMissingField, msg, field)
		}
		return cart.NewError(cart.ErrorCodeMissingField, "Please complete all required fields.")
	}

	c.customer = info
	c.transition(StepPayment)
	return nil
}

// Back moves one step backward without re-validating. Payment returns
// to info, info returns to cart.
func (c *Checkout) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case StepInfo:
		c.transition(StepCart)
	case StepPayment:
		c.transition(StepInfo)
	default:
		return ErrInvalidState
	}
	return nil
}

// CurrentTotals computes subtotal, tax and total from the session
// snapshot. Totals are computed fresh on every call, never cached.
func (c *Checkout) CurrentTotals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals()
}

func (c *Checkout) totals() Totals {
	subtotal := c.items.Subtotal()
	tax := subtotal.Mul(c.cfg.TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// CompleteOrder submits the order to the external processor and, on
// success, captures the confirmation snapshot and clears the cart.
// A failure keeps the flow on payment so the user can retry. The
// processing step runs under a hard timeout and a pending guard
// rejects re-entrant completion while one is in flight.
func (c *Checkout) CompleteOrder(ctx context.Context) (*Order, error) {
	c.mu.Lock()
	if c.step != StepPayment {
		c.mu.Unlock()
		return nil, ErrInvalidState
	}
	if c.pending {
		c.mu.Unlock()
		return nil, ErrOrderPending
	}
	if !c.manager.CheckRateLimit(opCheckout) {
		c.mu.Unlock()
		return nil, ErrRateLimited
	}

	// A snapshot that fails validation at this boundary is untrusted in
	// full; the whole cart is discarded, not just the invalid items.
	if _, err := c.manager.ValidateCart(c.items); err != nil {
		c.items = nil
		c.transition(StepCart)
		c.mu.Unlock()
		c.cart.reset(ctx)
		return nil, err
	}

	totals := c.totals()
	order := &Order{
		Number:   newOrderNumber(),
		Date:     c.now(),
		Items:    c.items.Clone(),
		Customer: c.customer,
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
	c.pending = true
	c.mu.Unlock()

	err := c.process(ctx, order)

	c.mu.Lock()
	c.pending = false
	if err != nil {
		c.mu.Unlock()
		c.manager.Record(security.EventOrderFailed, map[string]any{
			"order_number": order.Number, "error": err.Error(),
		})
		if c.metrics != nil {
			c.metrics.OrdersFailed.Add(ctx, 1)
		}
		return nil, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}
	c.order = order
	c.transition(StepConfirmation)
	c.mu.Unlock()

	c.cart.reset(ctx)
	c.manager.Record(security.EventOrderCompleted, map[string]any{
		"order_number": order.Number,
		"items":        len(order.Items),
		"total":        order.Total.String(),
	})
	if c.metrics != nil {
		c.metrics.OrdersCompleted.Add(ctx, 1)
		total, _ := order.Total.Float64()
		c.metrics.OrderTotal.Record(ctx, total)
	}
	return order, nil
}

// process runs the external step under the configured hard timeout.
func (c *Checkout) process(ctx context.Context, order *Order) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OrderTimeout)
	defer cancel()

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "checkout.process_order")
		span.SetAttributes(attribute.String("order.number", order.Number))
		defer span.End()
	}
	return c.processor.Process(ctx, order)
}

// Reset clears the session for a new checkout. The completed order
// snapshot is discarded; the flow returns to cart.
func (c *Checkout) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.customer = CustomerInfo{}
	c.order = nil
	c.transition(StepCart)
}

// transition moves the state machine. Caller holds the lock.
func (c *Checkout) transition(to Step) {
	from := c.step
	c.step = to
	c.logger.Debug("Checkout transition", "from", from, "to", to)
	if c.metrics != nil {
		c.metrics.CheckoutTransitions.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("from", string(from)),
				attribute.String("to", string(to)),
			))
	}
}

func sanitizeCustomerInfo(info CustomerInfo) CustomerInfo {
	return CustomerInfo{
		Email:     security.SanitizeText(info.Email, security.TextKindEmail),
		FirstName: security.SanitizeText(info.FirstName, security.TextKindText),
		LastName:  security.SanitizeText(info.LastName, security.TextKindText),
		Address:   security.SanitizeText(info.Address, security.TextKindText),
		City:      security.SanitizeText(info.City, security.TextKindText),
		State:     security.SanitizeText(info.State, security.TextKindText),
		Zip:       security.SanitizeText(info.Zip, security.TextKindText),
		Country:   security.SanitizeText(info.Country, security.TextKindText),
	}
}

// newOrderNumber returns a short unique order reference.
func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + id[:12]
}
