package coupon

import (
	"context"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
)

// Engine validates discount codes, prices discounts and records usage.
type Engine interface {
	// Validate runs the ordered eligibility checks against the stored coupon.
	// Checks short-circuit on the first failure, whose DomainError carries the
	// reason shown to the customer.
	Validate(ctx context.Context, in Input) (*model.Coupon, error)

	// ValidateTx is Validate inside a checkout transaction. The coupon row is
	// locked until the transaction ends so usage counters cannot race.
	ValidateTx(ctx context.Context, tx pgx.Tx, in Input) (*model.Coupon, error)

	// ComputeDiscount returns the discount the coupon grants on subtotal.
	ComputeDiscount(subtotal int64, c *model.Coupon, items []model.CartLine) int64

	// RecordUsage increments the global and per-user usage counters. It must run
	// in the same transaction that creates the order using the coupon.
	RecordUsage(ctx context.Context, tx pgx.Tx, code, userID string) error

	// Quote validates a code against a cart and prices it.
	Quote(ctx context.Context, req *model.ValidateCouponRequest) (*model.CouponQuote, error)
}

// Input is what a coupon is validated against.
type Input struct {
	Code       string
	OrderTotal int64
	UserID     string
	Items      []model.CartLine
}

// Store is the coupon persistence the engine relies on.
type Store interface {
	// FindByCode returns the coupon with the given normalised code, or nil if
	// none exists. When userID is set the user's usage count is loaded too.
	FindByCode(ctx context.Context, code, userID string) (*model.Coupon, error)

	// FindByCodeForUpdate is FindByCode with the coupon row locked in tx.
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code, userID string) (*model.Coupon, error)

	// IncrementUsage bumps used_count by one, refusing to go past max_uses, and
	// bumps the user's counter when userID is set.
	IncrementUsage(ctx context.Context, tx pgx.Tx, code, userID string) error
}

// Writer persists coupon definitions from an imported catalogue.
type Writer interface {
	Upsert(ctx context.Context, c *model.Coupon) error
}

// Loader defines the interface for loading coupon catalogue files.
type Loader interface {
	// Load reads a gzipped JSON-lines coupon catalogue.
	Load(ctx context.Context, filePath string) (*Catalog, error)
}
