package security

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultWindow is the rolling window over which operations are counted.
	DefaultWindow = 60 * time.Second

	// DefaultQuota is the number of accepted calls per operation per window.
	DefaultQuota = 10
)

// RateLimiter bounds the number of accepted calls per operation name
// within a rolling window. State is process-lifetime only; nothing is
// persisted across restarts.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	quota   int
	stamps  map[string][]time.Time
	auditor *Auditor
	logger  *slog.Logger
	now     func() time.Time
}

// RateLimiterOption customizes a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock overrides the time source, for tests.
func WithRateLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter creates a per-operation rate limiter. Non-positive
// window or quota fall back to the defaults. The auditor may be nil;
// rejections and clock anomalies are then only logged.
func NewRateLimiter(window time.Duration, quota int, auditor *Auditor, logger *slog.Logger, opts ...RateLimiterOption) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	rl := &RateLimiter{
		window:  window,
		quota:   quota,
		stamps:  make(map[string][]time.Time),
		auditor: auditor,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow reports whether a call to the named operation is accepted.
// An accepted call is recorded against the operation's window; a
// rejected call is not recorded. An unusable clock reading fails open.
func (rl *RateLimiter) Allow(operation string) bool {
	now := rl.now()
	if now.IsZero() {
		rl.record(EventClockAnomaly, map[string]any{"operation": operation})
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Stale entries are purged across every operation, not just the
	// requested one, so idle operations do not pin memory.
	cutoff := now.Add(-rl.window)
	for op, ts := range rl.stamps {
		kept := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(rl.stamps, op)
			continue
		}
		rl.stamps[op] = kept
	}

	if len(rl.stamps[operation]) >= rl.quota {
		rl.record(EventRateLimitExceeded, map[string]any{
			"operation": operation,
			"quota":     rl.quota,
			"window":    rl.window.String(),
		})
		return false
	}

	rl.stamps[operation] = append(rl.stamps[operation], now)
	return true
}

// record routes through the auditor when one is attached.
func (rl *RateLimiter) record(kind string, details map[string]any) {
	if rl.auditor != nil {
		rl.auditor.Record(kind, details)
		return
	}
	rl.logger.Warn("security_event", "kind", kind, "details", details)
}

// Stats holds rate limiter occupancy for monitoring.
type Stats struct {
	Operations int // distinct operations with recorded timestamps
	Recorded   int // total timestamps currently recorded
}

// GetStats returns current window occupancy. Entries older than the
// window are still counted until the next Allow call purges them.
func (rl *RateLimiter) GetStats() Stats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := Stats{Operations: len(rl.stamps)}
	for _, ts := range rl.stamps {
		stats.Recorded += len(ts)
	}
	return stats
}
