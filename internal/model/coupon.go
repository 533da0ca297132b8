package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType is the way a coupon value is applied.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercent || t == DiscountFixed
}

// Coupon is a discount code definition together with its usage counters.
//
// UserUsage only carries the entries that were loaded for the request at hand;
// it is never a complete picture of every customer.
type Coupon struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Type           DiscountType    `json:"type"`
	Value          decimal.Decimal `json:"value"`
	Active         bool            `json:"active"`
	StartsAt       *time.Time      `json:"startsAt,omitempty"`
	EndsAt         *time.Time      `json:"endsAt,omitempty"`
	MaxUses        *int            `json:"maxUses,omitempty"`
	UsedCount      int             `json:"usedCount"`
	MaxUsesPerUser *int            `json:"maxUsesPerUser,omitempty"`
	UserUsage      map[string]int  `json:"-"`
	MinOrderAmount *int64          `json:"minOrderAmount,omitempty"`
	ProductIDs     []string        `json:"productIds,omitempty"`
	CategoryIDs    []string        `json:"categoryIds,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NormalizeCode canonicalises a coupon code for lookup: codes are unique
// case-insensitively and surrounding whitespace is ignored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Restricted reports whether the coupon declares a product or category allow-list.
func (c *Coupon) Restricted() bool {
	return len(c.ProductIDs) > 0 || len(c.CategoryIDs) > 0
}

// Matches reports whether a cart line is eligible under the coupon's
// allow-lists. A line matches when its product is allowed or its category is
// allowed.
func (c *Coupon) Matches(line CartLine) bool {
	for _, id := range c.ProductIDs {
		if id == line.ProductID {
			return true
		}
	}
	if line.CategoryID == "" {
		return false
	}
	for _, id := range c.CategoryIDs {
		if id == line.CategoryID {
			return true
		}
	}
	return false
}

// CartLine is a cart entry as seen by the coupon engine.
type CartLine struct {
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
}

// LineTotal is price × quantity.
func (l CartLine) LineTotal() int64 {
	return l.Price * int64(l.Quantity)
}

// ValidateCouponRequest is the payload of an on-demand coupon check.
type ValidateCouponRequest struct {
	Code       string     `json:"code"`
	OrderTotal *int64     `json:"orderTotal,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	Items      []CartLine `json:"items"`
}

// CouponQuote is the outcome of a successful coupon check.
type CouponQuote struct {
	Coupon   *Coupon `json:"coupon"`
	Subtotal int64   `json:"subtotal"`
	Discount int64   `json:"discount"`
	Payable  int64   `json:"payable"`
}
