package coupon

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// engine implements Engine on top of a Store.
type engine struct {
	store  Store
	clock  func() time.Time
	logger zerolog.Logger
}

// NewEngine creates a coupon engine. A nil clock defaults to time.Now.
func NewEngine(store Store, clock func() time.Time, logger zerolog.Logger) Engine {
	if clock == nil {
		clock = time.Now
	}
	return &engine{
		store:  store,
		clock:  clock,
		logger: logger.With().Str("component", "coupon-engine").Logger(),
	}
}

// Validate loads the coupon and runs Check against it.
func (e *engine) Validate(ctx context.Context, in Input) (*model.Coupon, error) {
	code := model.NormalizeCode(in.Code)
	if code == "" {
		return nil, model.ErrCouponNotFound
	}

	c, err := e.store.FindByCode(ctx, code, in.UserID)
	if err != nil {
		e.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to load coupon")
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	return e.check(c, in)
}

// ValidateTx loads the coupon with its row locked in tx and runs Check.
func (e *engine) ValidateTx(ctx context.Context, tx pgx.Tx, in Input) (*model.Coupon, error) {
	code := model.NormalizeCode(in.Code)
	if code == "" {
		return nil, model.ErrCouponNotFound
	}

	c, err := e.store.FindByCodeForUpdate(ctx, tx, code, in.UserID)
	if err != nil {
		e.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to lock coupon")
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	return e.check(c, in)
}

func (e *engine) check(c *model.Coupon, in Input) (*model.Coupon, error) {
	if err := Check(c, e.clock(), in.OrderTotal, in.UserID, in.Items); err != nil {
		e.logger.Debug().
			Str("coupon_code", model.NormalizeCode(in.Code)).
			Str("reason", err.Error()).
			Msg("coupon rejected")
		return nil, err
	}
	return c, nil
}

// ComputeDiscount delegates to the package-level ComputeDiscount.
func (e *engine) ComputeDiscount(subtotal int64, c *model.Coupon, items []model.CartLine) int64 {
	return ComputeDiscount(subtotal, c, items)
}

// RecordUsage increments usage counters inside tx.
func (e *engine) RecordUsage(ctx context.Context, tx pgx.Tx, code, userID string) error {
	code = model.NormalizeCode(code)
	if err := e.store.IncrementUsage(ctx, tx, code, userID); err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return err
		}
		e.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to record coupon usage")
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}

	e.logger.Debug().
		Str("coupon_code", code).
		Bool("per_user", userID != "").
		Msg("coupon usage recorded")

	return nil
}

// Quote validates req against the stored coupon and prices it. When the
// request carries no order total the cart subtotal is used.
func (e *engine) Quote(ctx context.Context, req *model.ValidateCouponRequest) (*model.CouponQuote, error) {
	if req == nil {
		return nil, model.ErrCouponNotFound
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
	}

	subtotal := Subtotal(req.Items)
	orderTotal := subtotal
	if req.OrderTotal != nil {
		orderTotal = *req.OrderTotal
	}

	c, err := e.Validate(ctx, Input{
		Code:       req.Code,
		OrderTotal: orderTotal,
		UserID:     req.UserID,
		Items:      req.Items,
	})
	if err != nil {
		return nil, err
	}

	discount := ComputeDiscount(subtotal, c, req.Items)
	return &model.CouponQuote{
		Coupon:   c,
		Subtotal: subtotal,
		Discount: discount,
		Payable:  subtotal - discount,
	}, nil
}

// Check runs the coupon eligibility rules in order and returns the first
// failure. A nil coupon means the code does not exist.
func Check(c *model.Coupon, now time.Time, orderTotal int64, userID string, items []model.CartLine) error {
	if c == nil {
		return model.ErrCouponNotFound
	}
	if !c.Active {
		return model.ErrCouponInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return model.ErrCouponNotStarted
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return model.ErrCouponExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return model.ErrCouponUsageCapReached
	}
	// Anonymous checkouts cannot be capped per user.
	if c.MaxUsesPerUser != nil && userID != "" && c.UserUsage[userID] >= *c.MaxUsesPerUser {
		return model.ErrCouponPerUserCapReached
	}
	if c.MinOrderAmount != nil && orderTotal < *c.MinOrderAmount {
		return model.ErrCouponMinOrderNotMet
	}
	if c.Restricted() && !anyMatch(c, items) {
		return model.ErrCouponNoEligibleItems
	}
	return nil
}

// EligibleTotal is the part of the cart the coupon may discount: the whole
// subtotal for unrestricted coupons, otherwise the sum of matching lines.
func EligibleTotal(subtotal int64, c *model.Coupon, items []model.CartLine) int64 {
	if !c.Restricted() {
		return subtotal
	}
	var total int64
	for _, item := range items {
		if c.Matches(item) {
			total += item.LineTotal()
		}
	}
	return total
}

// ComputeDiscount prices the coupon against the eligible part of the cart.
// Percent coupons are floored to whole units; fixed coupons never exceed the
// eligible total.
func ComputeDiscount(subtotal int64, c *model.Coupon, items []model.CartLine) int64 {
	if c == nil {
		return 0
	}
	eligible := EligibleTotal(subtotal, c, items)
	if eligible <= 0 {
		return 0
	}

	var discount int64
	switch c.Type {
	case model.DiscountPercent:
		discount = decimal.NewFromInt(eligible).Mul(c.Value).Div(hundred).Floor().IntPart()
	case model.DiscountFixed:
		discount = c.Value.Floor().IntPart()
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > eligible {
		return eligible
	}
	return discount
}

// Subtotal sums price × quantity over the cart.
func Subtotal(items []model.CartLine) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

func anyMatch(c *model.Coupon, items []model.CartLine) bool {
	for _, item := range items {
		if c.Matches(item) {
			return true
		}
	}
	return false
}
