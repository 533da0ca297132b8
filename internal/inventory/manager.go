package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// DefaultHoldTTL is how long a cart hold lives without being refreshed.
const DefaultHoldTTL = 30 * time.Minute

type hold struct {
	id        string
	quantity  int
	expiresAt time.Time
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	TTL         time.Duration
	Clock       func() time.Time
	IDGenerator func() string
}

// manager keeps holds in process memory, keyed by cart then stock bucket.
type manager struct {
	store  StockStore
	ttl    time.Duration
	clock  func() time.Time
	newID  func() string
	logger zerolog.Logger

	mu    sync.Mutex
	holds map[string]map[model.StockKey]*hold
}

// NewManager creates an in-memory reservation manager over store.
func NewManager(store StockStore, opts Options, logger zerolog.Logger) Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.IDGenerator
	if newID == nil {
		newID = func() string {
			return ulid.Make().String()
		}
	}

	return &manager{
		store:  store,
		ttl:    ttl,
		clock:  clock,
		newID:  newID,
		logger: logger.With().Str("component", "inventory").Logger(),
		holds:  make(map[string]map[model.StockKey]*hold),
	}
}

// AvailableToAdd reads current stock and subtracts every live hold on key.
func (m *manager) AvailableToAdd(ctx context.Context, cartID string, key model.StockKey) (int, error) {
	stock, err := m.stock(ctx, key)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(m.clock())
	others, current := m.heldLocked(cartID, key)
	_, available := Clamp(stock, others, 0, current)
	return available, nil
}

// Reserve replaces the cart's hold on key with the clamped quantity and
// refreshes its expiry.
func (m *manager) Reserve(ctx context.Context, cartID string, key model.StockKey, requested int) (*Reservation, error) {
	if cartID == "" {
		return nil, model.MissingField("cartId")
	}
	if key.ProductID == "" {
		return nil, model.MissingField("productId")
	}
	if requested < 0 {
		return nil, model.ErrInvalidQuantity
	}

	stock, err := m.stock(ctx, key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	m.sweepLocked(now)

	others, current := m.heldLocked(cartID, key)
	granted, _ := Clamp(stock, others, requested, current)

	res := &Reservation{
		CartID:    cartID,
		ProductID: key.ProductID,
		VariantID: key.VariantID,
		Requested: requested,
		Granted:   granted,
		Clamped:   granted < requested,
		Available: max(0, stock-others-granted),
	}

	if granted == 0 {
		m.dropLocked(cartID, key)
		m.logger.Debug().
			Str("cart_id", cartID).
			Str("stock_key", key.String()).
			Int("requested", requested).
			Msg("no units held")
		return res, nil
	}

	cart, ok := m.holds[cartID]
	if !ok {
		cart = make(map[model.StockKey]*hold)
		m.holds[cartID] = cart
	}
	h, ok := cart[key]
	if !ok {
		h = &hold{id: m.newID()}
		cart[key] = h
	}
	h.quantity = granted
	h.expiresAt = now.Add(m.ttl)

	res.HoldID = h.id
	res.ExpiresAt = h.expiresAt

	if res.Clamped {
		m.logger.Info().
			Str("cart_id", cartID).
			Str("stock_key", key.String()).
			Int("requested", requested).
			Int("granted", granted).
			Msg("cart line clamped to available stock")
	}

	return res, nil
}

// Release lowers the cart's holds by the given quantities.
func (m *manager) Release(cartID string, lines []Line) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.holds[cartID]
	if !ok {
		return
	}
	for _, line := range lines {
		h, ok := cart[line.Key]
		if !ok {
			continue
		}
		h.quantity -= line.Quantity
		if h.quantity <= 0 {
			delete(cart, line.Key)
		}
	}
	if len(cart) == 0 {
		delete(m.holds, cartID)
	}
}

// ReleaseCart drops every hold of the cart.
func (m *manager) ReleaseCart(cartID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.holds[cartID])
	delete(m.holds, cartID)

	if n > 0 {
		m.logger.Debug().Str("cart_id", cartID).Int("holds", n).Msg("cart holds released")
	}
	return n
}

// Finalize decrements stock bucket by bucket with a conditional update, in key
// order so concurrent checkouts lock rows in the same sequence.
func (m *manager) Finalize(ctx context.Context, tx pgx.Tx, lines []Line) error {
	merged, err := mergeLines(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		ok, err := m.store.DecrementStock(ctx, tx, line.Key, line.Quantity)
		if err != nil {
			m.logger.Error().Err(err).Str("stock_key", line.Key.String()).Msg("failed to decrement stock")
			return fmt.Errorf("failed to decrement stock for %s: %w", line.Key, err)
		}
		if !ok {
			m.logger.Warn().
				Str("stock_key", line.Key.String()).
				Int("quantity", line.Quantity).
				Msg("insufficient stock at finalization")
			return model.ErrInsufficientStock
		}
	}
	return nil
}

// Restock adds the lines back to stock.
func (m *manager) Restock(ctx context.Context, tx pgx.Tx, lines []Line) error {
	merged, err := mergeLines(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		if err := m.store.IncrementStock(ctx, tx, line.Key, line.Quantity); err != nil {
			m.logger.Error().Err(err).Str("stock_key", line.Key.String()).Msg("failed to restock")
			return fmt.Errorf("failed to restock %s: %w", line.Key, err)
		}
	}
	return nil
}

func (m *manager) stock(ctx context.Context, key model.StockKey) (int, error) {
	stock, err := m.store.GetStock(ctx, key)
	if err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return 0, err
		}
		m.logger.Error().Err(err).Str("stock_key", key.String()).Msg("failed to read stock")
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return stock, nil
}

// heldLocked returns units held on key by other carts and by cartID.
func (m *manager) heldLocked(cartID string, key model.StockKey) (others, current int) {
	for id, cart := range m.holds {
		h, ok := cart[key]
		if !ok {
			continue
		}
		if id == cartID {
			current = h.quantity
		} else {
			others += h.quantity
		}
	}
	return others, current
}

func (m *manager) dropLocked(cartID string, key model.StockKey) {
	cart, ok := m.holds[cartID]
	if !ok {
		return
	}
	delete(cart, key)
	if len(cart) == 0 {
		delete(m.holds, cartID)
	}
}

func (m *manager) sweepLocked(now time.Time) {
	for cartID, cart := range m.holds {
		for key, h := range cart {
			if !now.Before(h.expiresAt) {
				delete(cart, key)
			}
		}
		if len(cart) == 0 {
			delete(m.holds, cartID)
		}
	}
}

func mergeLines(lines []Line) ([]Line, error) {
	agg := make(map[model.StockKey]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		agg[line.Key] += line.Quantity
	}

	merged := make([]Line, 0, len(agg))
	for key, qty := range agg {
		merged = append(merged, Line{Key: key, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Key.ProductID != merged[j].Key.ProductID {
			return merged[i].Key.ProductID < merged[j].Key.ProductID
		}
		return merged[i].Key.VariantID < merged[j].Key.VariantID
	})
	return merged, nil
}
