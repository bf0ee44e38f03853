package instrumentation

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the storefront library
type Metrics struct {
	// Security Metrics
	SecurityEventsTotal metric.Int64Counter
	RateLimitExceeded   metric.Int64Counter
	TokensIssued        metric.Int64Counter
	TokensRejected      metric.Int64Counter

	// Cart Metrics
	CartMutationsTotal  metric.Int64Counter
	CartMutationsDenied metric.Int64Counter
	CartSize            metric.Int64ObservableGauge

	// Checkout Metrics
	CheckoutTransitions metric.Int64Counter
	OrdersCompleted     metric.Int64Counter
	OrdersFailed        metric.Int64Counter
	OrderTotal          metric.Float64Histogram

	// Storage Metrics
	StorageOperationsTotal   metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram

	// Rate limiter window occupancy
	RateLimitWindowSize metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	securityMeter := inst.Meter("security")
	cartMeter := inst.Meter("cart")
	checkoutMeter := inst.Meter("checkout")
	storageMeter := inst.Meter("storage")
	stateMeter := inst.Meter("state")

	var err error
	m.SecurityEventsTotal, err = securityMeter.Int64Counter(
		"storefront.security.events.total",
		metric.WithDescription("Total number of recorded security events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security.events.total counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"storefront.security.ratelimit.exceeded",
		metric.WithDescription("Number of operations rejected by the rate limiter"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratelimit.exceeded counter: %w", err)
	}

	m.TokensIssued, err = securityMeter.Int64Counter(
		"storefront.security.tokens.issued",
		metric.WithDescription("Number of CSRF tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}

	m.TokensRejected, err = securityMeter.Int64Counter(
		"storefront.security.tokens.rejected",
		metric.WithDescription("Number of CSRF token verifications that failed"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.rejected counter: %w", err)
	}

	m.CartMutationsTotal, err = cartMeter.Int64Counter(
		"storefront.cart.mutations.total",
		metric.WithDescription("Number of cart mutations applied"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart.mutations.total counter: %w", err)
	}

	m.CartMutationsDenied, err = cartMeter.Int64Counter(
		"storefront.cart.mutations.denied",
		metric.WithDescription("Number of cart mutations aborted by validation or throttling"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart.mutations.denied counter: %w", err)
	}

	m.CartSize, err = stateMeter.Int64ObservableGauge(
		"storefront.cart.size",
		metric.WithDescription("Current number of distinct items in the cart"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart.size gauge: %w", err)
	}

	m.CheckoutTransitions, err = checkoutMeter.Int64Counter(
		"storefront.checkout.transitions",
		metric.WithDescription("Number of checkout step transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.transitions counter: %w", err)
	}

	m.OrdersCompleted, err = checkoutMeter.Int64Counter(
		"storefront.checkout.orders.completed",
		metric.WithDescription("Number of orders completed successfully"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders.completed counter: %w", err)
	}

	m.OrdersFailed, err = checkoutMeter.Int64Counter(
		"storefront.checkout.orders.failed",
		metric.WithDescription("Number of orders rejected by the processing step"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders.failed counter: %w", err)
	}

	m.OrderTotal, err = checkoutMeter.Float64Histogram(
		"storefront.checkout.order.total",
		metric.WithDescription("Completed order totals, tax included"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order.total histogram: %w", err)
	}

	m.StorageOperationsTotal, err = storageMeter.Int64Counter(
		"storefront.storage.operations.total",
		metric.WithDescription("Number of durable storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operations.total counter: %w", err)
	}

	m.StorageOperationDuration, err = storageMeter.Float64Histogram(
		"storefront.storage.operation.duration",
		metric.WithDescription("Durable storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	m.RateLimitWindowSize, err = stateMeter.Int64ObservableGauge(
		"storefront.security.ratelimit.window.size",
		metric.WithDescription("Timestamps currently recorded across all rate limit windows"),
		metric.WithUnit("{timestamp}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratelimit.window.size gauge: %w", err)
	}

	return m, nil
}
