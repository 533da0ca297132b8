package service

import (
	"context"
	"fmt"

	"storefront/internal/coupon"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// couponService implements CouponService.
type couponService struct {
	engine coupon.Engine
	repo   repository.CouponRepository
	logger zerolog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(engine coupon.Engine, repo repository.CouponRepository, logger zerolog.Logger) CouponService {
	return &couponService{
		engine: engine,
		repo:   repo,
		logger: logger.With().Str("service", "coupon").Logger(),
	}
}

// Quote validates the code against the cart and prices the discount.
func (s *couponService) Quote(ctx context.Context, req *model.ValidateCouponRequest) (*model.CouponQuote, error) {
	if req == nil {
		return nil, model.MissingField("code")
	}

	quote, err := s.engine.Quote(ctx, req)
	if err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return nil, err
		}
		s.logger.Error().Err(err).Str("coupon_code", req.Code).Msg("failed to quote coupon")
		return nil, fmt.Errorf("failed to validate coupon: %w", err)
	}

	s.logger.Debug().
		Str("coupon_code", quote.Coupon.Code).
		Int64("subtotal", quote.Subtotal).
		Int64("discount", quote.Discount).
		Msg("coupon quoted")

	return quote, nil
}

// GetByCode retrieves a coupon definition with its global usage counter.
func (s *couponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	code = model.NormalizeCode(code)
	if code == "" {
		return nil, model.ErrCouponNotFound
	}

	c, err := s.repo.FindByCode(ctx, code, "")
	if err != nil {
		s.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to get coupon")
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	if c == nil {
		return nil, model.ErrCouponNotFound
	}
	return c, nil
}
