package service

import (
	"context"
	"fmt"

	"storefront/internal/inventory"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// cartService implements CartService on top of the reservation manager.
type cartService struct {
	stock  inventory.Manager
	logger zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(stock inventory.Manager, logger zerolog.Logger) CartService {
	return &cartService{
		stock:  stock,
		logger: logger.With().Str("service", "cart").Logger(),
	}
}

// SetLine reserves line.Quantity units for the cart, or as many as are free.
func (s *cartService) SetLine(ctx context.Context, cartID string, line model.OrderItemRequest) (*inventory.Reservation, error) {
	res, err := s.stock.Reserve(ctx, cartID, line.StockKey(), line.Quantity)
	if err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return nil, err
		}
		s.logger.Error().Err(err).
			Str("cart_id", cartID).
			Str("stock_key", line.StockKey().String()).
			Msg("failed to reserve stock")
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return res, nil
}

// Available returns how many more units of key the cart may add.
func (s *cartService) Available(ctx context.Context, cartID string, key model.StockKey) (int, error) {
	if key.ProductID == "" {
		return 0, model.MissingField("productId")
	}

	n, err := s.stock.AvailableToAdd(ctx, cartID, key)
	if err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return 0, err
		}
		s.logger.Error().Err(err).Str("stock_key", key.String()).Msg("failed to read availability")
		return 0, fmt.Errorf("failed to read availability: %w", err)
	}
	return n, nil
}

// Clear drops all holds of the cart.
func (s *cartService) Clear(cartID string) int {
	n := s.stock.ReleaseCart(cartID)
	s.logger.Debug().Str("cart_id", cartID).Int("released", n).Msg("cart cleared")
	return n
}
