package security

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenMaxAge is how long an issued CSRF token stays valid.
const DefaultTokenMaxAge = time.Hour

// TokenIssuer mints and verifies CSRF tokens. A token is the base64
// encoding of "<issue timestamp in ms>:<random nonce>", minted once per
// issuer and republished for the page lifetime.
type TokenIssuer struct {
	auditor *Auditor
	now     func() time.Time
	token   string
}

// TokenIssuerOption customizes a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithTokenClock overrides the time source, for tests.
func WithTokenClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) { t.now = now }
}

// NewTokenIssuer creates an issuer and mints its token. The auditor may
// be nil; verification failures are then not recorded.
func NewTokenIssuer(auditor *Auditor, opts ...TokenIssuerOption) *TokenIssuer {
	t := &TokenIssuer{
		auditor: auditor,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	raw := fmt.Sprintf("%d:%s", t.now().UnixMilli(), uuid.NewString())
	t.token = base64.StdEncoding.EncodeToString([]byte(raw))
	return t
}

// Token returns the minted token.
func (t *TokenIssuer) Token() string {
	return t.token
}

// Verify reports whether token is well-formed and no older than
// maxAge. Malformed encoding and expiry both yield false, never a
// panic; each rejection records one event.
func (t *TokenIssuer) Verify(token string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}

	issuedAt, ok := t.decode(token)
	if !ok {
		t.record(EventTokenInvalid, map[string]any{"reason": "malformed token"})
		return false
	}

	age := t.now().Sub(issuedAt)
	if age > maxAge {
		t.record(EventTokenExpired, map[string]any{
			"age_ms":     age.Milliseconds(),
			"max_age_ms": maxAge.Milliseconds(),
		})
		return false
	}
	return true
}

// decode extracts the issue timestamp from an encoded token.
func (t *TokenIssuer) decode(token string) (time.Time, bool) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (t *TokenIssuer) record(kind string, details map[string]any) {
	if t.auditor != nil {
		t.auditor.Record(kind, details)
	}
}
