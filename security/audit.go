package security

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// EventStore is the durable sink for audit events. Implementations keep
// a capped buffer (newest 100 entries) and must treat each append as a
// single atomic read-modify-write.
type EventStore interface {
	AppendEvent(ctx context.Context, event Event) error
}

// AlertFunc is invoked for high-severity events. The default is nil
// (log only); a monitoring integration can replace it.
type AlertFunc func(Event)

const (
	// alertInterval is the minimum sustained spacing between alert
	// hook invocations. Bursts up to alertBurst are passed through.
	alertInterval = 10 * time.Second
	alertBurst    = 3
)

// Auditor records security events. Record is synchronous, performs no
// network calls inline, and never returns an error: storage failures
// are logged and swallowed.
type Auditor struct {
	store   EventStore
	logger  *slog.Logger
	alert   AlertFunc
	limiter *rate.Limiter
	now     func() time.Time
}

// AuditorOption customizes an Auditor.
type AuditorOption func(*Auditor)

// WithAlertHook installs a hook invoked for high-severity events.
// Invocations are throttled to protect the sink from alert storms.
func WithAlertHook(fn AlertFunc) AuditorOption {
	return func(a *Auditor) { a.alert = fn }
}

// WithAuditClock overrides the time source, for tests.
func WithAuditClock(now func() time.Time) AuditorOption {
	return func(a *Auditor) { a.now = now }
}

// NewAuditor creates a new security auditor. A nil store disables the
// durable buffer (events still reach the logger); a nil logger falls
// back to slog.Default().
func NewAuditor(store EventStore, logger *slog.Logger, opts ...AuditorOption) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Auditor{
		store:   store,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(alertInterval), alertBurst),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record classifies, logs and durably appends a security event, and
// returns the recorded event. High-severity events additionally trigger
// the alert hook.
func (a *Auditor) Record(kind string, details map[string]any) Event {
	event := Event{
		Timestamp: a.now(),
		Kind:      kind,
		Severity:  Classify(kind),
		Details:   details,
	}

	level := slog.LevelInfo
	if event.Severity == SeverityHigh {
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, "security_event",
		"kind", event.Kind,
		"severity", event.Severity,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)

	if a.store != nil {
		if err := a.store.AppendEvent(context.Background(), event); err != nil {
			a.logger.Warn("Failed to persist security event",
				"kind", event.Kind, "error", err)
		}
	}

	if event.Severity == SeverityHigh && a.alert != nil && a.limiter.Allow() {
		a.alert(event)
	}

	return event
}
