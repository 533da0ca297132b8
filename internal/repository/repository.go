package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines catalogue reads and the stock movements checkout
// is allowed to make.
type ProductRepository interface {
	// GetByIDsTx retrieves products with their variants inside tx.
	GetByIDsTx(ctx context.Context, tx pgx.Tx, ids []string) ([]model.Product, error)

	// GetStock returns the units on hand for a product or one of its variants.
	GetStock(ctx context.Context, key model.StockKey) (int, error)

	// DecrementStock subtracts qty only when at least qty units remain and
	// reports whether it did.
	DecrementStock(ctx context.Context, tx pgx.Tx, key model.StockKey, qty int) (bool, error)

	// IncrementStock adds qty units back.
	IncrementStock(ctx context.Context, tx pgx.Tx, key model.StockKey, qty int) error
}

// CouponRepository persists coupons and their usage counters.
type CouponRepository interface {
	// FindByCode returns the coupon or nil when the code is unknown. The
	// user's usage count is loaded into UserUsage when userID is set.
	FindByCode(ctx context.Context, code, userID string) (*model.Coupon, error)

	// FindByCodeForUpdate is FindByCode with the coupon row locked in tx.
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code, userID string) (*model.Coupon, error)

	// IncrementUsage bumps the global and per-user counters, refusing to pass
	// either cap.
	IncrementUsage(ctx context.Context, tx pgx.Tx, code, userID string) error

	// Upsert creates or redefines a coupon by code. Usage counters are kept.
	Upsert(ctx context.Context, c *model.Coupon) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// CreateAddress stores a shipping address entered at checkout.
	CreateAddress(ctx context.Context, tx pgx.Tx, addr *model.Address) error

	// GetAddress returns a stored address or nil.
	GetAddress(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Address, error)

	// GetByID retrieves an order with its items and address, or nil.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate is GetByID with the order row locked in tx.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// Update writes the mutable order fields.
	Update(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// Delete removes an order and everything hanging off it. It reports
	// whether a row was deleted.
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// ReturnRepository persists return requests.
type ReturnRepository interface {
	// Create inserts the request and its items.
	Create(ctx context.Context, tx pgx.Tx, r *model.ReturnRequest) error

	// GetByID returns a return request with its items, or nil.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)

	// GetForUpdate is GetByID with the request row locked in tx.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ReturnRequest, error)

	// ListByOrder returns an order's return requests, oldest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.ReturnRequest, error)

	// ClaimedQuantities sums, per order item, the quantities already claimed
	// by return requests that were not rejected.
	ClaimedQuantities(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (map[uuid.UUID]int, error)

	// RefundedTotal sums refunds recorded on the order's other requests.
	RefundedTotal(ctx context.Context, tx pgx.Tx, orderID, excludeID uuid.UUID) (int64, error)

	// Update writes status, note, decision time and refund amount.
	Update(ctx context.Context, tx pgx.Tx, r *model.ReturnRequest) error
}
