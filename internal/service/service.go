package service

import (
	"context"

	"storefront/internal/inventory"
	"storefront/internal/model"

	"github.com/google/uuid"
)

// CouponService exposes discount codes to shoppers and administrators.
type CouponService interface {
	// Quote validates a code against a cart and prices the discount.
	Quote(ctx context.Context, req *model.ValidateCouponRequest) (*model.CouponQuote, error)

	// GetByCode returns the coupon definition and its counters.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// CartService manages the stock holds of a shopping cart.
type CartService interface {
	// SetLine sets the cart's quantity for one product or variant, clamped to
	// what stock and other carts leave available.
	SetLine(ctx context.Context, cartID string, line model.OrderItemRequest) (*inventory.Reservation, error)

	// Available returns how many more units of key the cart may add.
	Available(ctx context.Context, cartID string, key model.StockKey) (int, error)

	// Clear drops every hold of the cart.
	Clear(cartID string) int
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder places an order from the checkout submission. Pricing,
	// stock decrement, coupon usage and persistence happen atomically.
	CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// GetByID retrieves an order with its items, address and return requests.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// UpdateOrder applies an administrative patch, enforcing the status machine.
	UpdateOrder(ctx context.Context, id uuid.UUID, patch *model.OrderPatch) (*model.Order, error)

	// DeleteOrder removes the order permanently.
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// ReturnService runs the return request workflow of delivered orders.
type ReturnService interface {
	// RequestReturn files a return request against a delivered order.
	RequestReturn(ctx context.Context, orderID uuid.UUID, in *model.ReturnRequestInput) (*model.ReturnRequest, error)

	// Decide records an administrator's decision on a return request.
	Decide(ctx context.Context, id uuid.UUID, d *model.ReturnDecision) (*model.ReturnRequest, error)

	// GetByID retrieves a return request.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)
}
