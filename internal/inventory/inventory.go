package inventory

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
)

// Manager tracks soft holds placed by carts and converts them into real
// stock movements when orders are placed or cancelled.
type Manager interface {
	// AvailableToAdd returns how many more units the cart may hold on key:
	// stock minus units held by other carts minus what the cart already holds.
	AvailableToAdd(ctx context.Context, cartID string, key model.StockKey) (int, error)

	// Reserve sets the cart's hold on key to requested units, clamped to what
	// the stock can cover. A requested quantity of zero drops the hold.
	Reserve(ctx context.Context, cartID string, key model.StockKey, requested int) (*Reservation, error)

	// Release removes the given quantities from the cart's holds.
	Release(cartID string, lines []Line)

	// ReleaseCart drops every hold of the cart and returns how many were dropped.
	ReleaseCart(cartID string) int

	// Finalize decrements real stock for every line inside tx. The whole call
	// fails with ErrInsufficientStock if any bucket cannot cover its line.
	Finalize(ctx context.Context, tx pgx.Tx, lines []Line) error

	// Restock puts the lines back into stock inside tx.
	Restock(ctx context.Context, tx pgx.Tx, lines []Line) error
}

// StockStore is the persistent stock the manager reads and adjusts.
type StockStore interface {
	// GetStock returns the units on hand for key. Unknown products or variants
	// yield ErrProductNotFound or ErrVariantNotFound.
	GetStock(ctx context.Context, key model.StockKey) (int, error)

	// DecrementStock removes qty units only if at least qty are on hand and
	// reports whether the row was updated.
	DecrementStock(ctx context.Context, tx pgx.Tx, key model.StockKey, qty int) (bool, error)

	// IncrementStock adds qty units back.
	IncrementStock(ctx context.Context, tx pgx.Tx, key model.StockKey, qty int) error
}

// Line is a quantity of one stock bucket.
type Line struct {
	Key      model.StockKey
	Quantity int
}

// Reservation is the outcome of a Reserve call.
type Reservation struct {
	HoldID    string    `json:"holdId,omitempty"`
	CartID    string    `json:"cartId"`
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	Requested int       `json:"requested"`
	Granted   int       `json:"granted"`
	Available int       `json:"available"`
	Clamped   bool      `json:"clamped"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Clamp applies the reservation rule for one cart line. others is the number
// of units held by other carts and current what this cart already holds. It
// returns the quantity the line may have and how many units are still free to
// add on top of current.
func Clamp(stock, others, requested, current int) (granted, available int) {
	available = stock - others - current
	if available < 0 {
		available = 0
	}
	// available+current, except that a hold made before stock shrank cannot
	// keep more than the stock others leave over.
	limit := available + current
	if free := stock - others; limit > free {
		limit = free
	}
	granted = requested
	if granted > limit {
		granted = limit
	}
	if granted < 0 {
		granted = 0
	}
	return granted, available
}
