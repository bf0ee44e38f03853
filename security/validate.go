package security

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/shopkit/storefront/cart"
)

const (
	// DefaultProductIDPattern matches the catalog's product identifiers.
	DefaultProductIDPattern = `^gid://shopify/Product/\d+$`

	// DefaultImageHostPattern restricts image URLs to the CDN.
	DefaultImageHostPattern = `(^|\.)cdn\.shopify\.com$`

	// titlePattern restricts titles to a conservative character set.
	titlePattern = `^[a-zA-Z0-9\s\-_.,!&'()]+$`
)

var maxPrice = decimal.NewFromInt(10000)

// ValidatorConfig holds the configurable format rules.
type ValidatorConfig struct {
	// ProductIDPattern overrides the product identifier regexp.
	ProductIDPattern string

	// ImageHostPattern overrides the allow-listed image host regexp.
	ImageHostPattern string
}

// Validator applies the per-field format rules to cart items and whole
// carts. Every rejection is recorded as exactly one security event
// naming the failing field.
type Validator struct {
	auditor    *Auditor
	idPattern  *regexp.Regexp
	title      *regexp.Regexp
	imageHosts *regexp.Regexp
	checks     []fieldCheck
}

// fieldCheck is one row of the declarative predicate table.
type fieldCheck struct {
	field string
	event string
	ok    func(cart.Item) bool
}

// NewValidator creates a validator with the given format rules. Empty
// pattern fields fall back to the defaults. The patterns must compile;
// an invalid override returns an error.
func NewValidator(auditor *Auditor, cfg ValidatorConfig) (*Validator, error) {
	if cfg.ProductIDPattern == "" {
		cfg.ProductIDPattern = DefaultProductIDPattern
	}
	if cfg.ImageHostPattern == "" {
		cfg.ImageHostPattern = DefaultImageHostPattern
	}

	idPattern, err := regexp.Compile(cfg.ProductIDPattern)
	if err != nil {
		return nil, err
	}
	imageHosts, err := regexp.Compile(cfg.ImageHostPattern)
	if err != nil {
		return nil, err
	}

	v := &Validator{
		auditor:    auditor,
		idPattern:  idPattern,
		title:      regexp.MustCompile(titlePattern),
		imageHosts: imageHosts,
	}

	// Checked in order; the first failing field is the one reported.
	v.checks = []fieldCheck{
		{"id", EventInvalidProductID, v.validID},
		{"title", EventInvalidProductTitle, v.validTitle},
		{"price", EventInvalidProductPrice, v.validPrice},
		{"image", EventInvalidProductImage, v.validImage},
		{"quantity", EventInvalidProductQuantity, v.validQuantity},
	}
	return v, nil
}

func (v *Validator) validID(item cart.Item) bool {
	return v.idPattern.MatchString(item.ID)
}

func (v *Validator) validTitle(item cart.Item) bool {
	if item.Title == "" || len(item.Title) > cart.MaxTitleLength {
		return false
	}
	return v.title.MatchString(item.Title)
}

func (v *Validator) validPrice(item cart.Item) bool {
	return item.Price.IsPositive() && item.Price.LessThan(maxPrice)
}

func (v *Validator) validImage(item cart.Item) bool {
	u, err := url.Parse(item.Image)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && v.imageHosts.MatchString(u.Hostname())
}

func (v *Validator) validQuantity(item cart.Item) bool {
	return item.Quantity >= 1 && item.Quantity <= cart.MaxQuantity
}

// ValidateItem checks every field rule in order and returns the item,
// or nil if any rule fails. A failure records exactly one event naming
// the first failing field; there is no partial repair.
func (v *Validator) ValidateItem(candidate cart.Item) *cart.Item {
	for _, check := range v.checks {
		if !check.ok(candidate) {
			if v.auditor != nil {
				v.auditor.Record(check.event, map[string]any{
					"field": check.field,
					"id":    candidate.ID,
				})
			}
			return nil
		}
	}
	return &candidate
}

// ValidateCart checks a whole candidate cart. It returns one of the
// structural cart errors for a nil, empty or oversized sequence, and
// cart.ErrInvalidItems when any element fails ValidateItem. Every
// element is validated even after the first failure, so the audit log
// records each invalid item.
func (v *Validator) ValidateCart(candidate cart.Items) (cart.Items, error) {
	if candidate == nil {
		return nil, cart.ErrNotList
	}
	if len(candidate) == 0 {
		return nil, cart.ErrEmpty
	}
	if len(candidate) > cart.MaxItems {
		return nil, cart.ErrTooLarge
	}

	valid := make(cart.Items, 0, len(candidate))
	invalid := 0
	for _, item := range candidate {
		if checked := v.ValidateItem(item); checked != nil {
			valid = append(valid, *checked)
		} else {
			invalid++
		}
	}
	if invalid > 0 {
		if v.auditor != nil {
			v.auditor.Record(EventInvalidCart, map[string]any{
				"invalid_items": invalid,
				"total_items":   len(candidate),
			})
		}
		return nil, cart.ErrInvalidItems
	}
	return valid, nil
}

// TextKind selects the sanitization rules applied by SanitizeText.
type TextKind string

const (
	// TextKindText strips tags, trims and truncates to 100 characters
	TextKindText TextKind = "text"

	// TextKindEmail additionally lowercases the input
	TextKindEmail TextKind = "email"
)

const sanitizedMaxLength = 100

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeText transforms untrusted free text into a safe bounded
// representation. Unrecognized kinds strip tags and trim only.
func SanitizeText(input string, kind TextKind) string {
	out := tagPattern.ReplaceAllString(input, "")
	out = strings.TrimSpace(out)

	switch kind {
	case TextKindText:
		return truncate(out, sanitizedMaxLength)
	case TextKindEmail:
		return truncate(strings.ToLower(out), sanitizedMaxLength)
	default:
		return out
	}
}

// SanitizeNumber parses input as a decimal number clamped to
// [0, 999999]. Unparseable input yields 0.
func SanitizeNumber(input string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 999999 {
		return 999999
	}
	return n
}

// truncate bounds s to maxLen characters, never splitting a rune.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
