package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/coupon"
	"storefront/internal/inventory"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	returnRepo  repository.ReturnRepository
	coupons     coupon.Engine
	stock       inventory.Manager
	notifier    *notify.Notifier
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	returnRepo repository.ReturnRepository,
	coupons coupon.Engine,
	stock inventory.Manager,
	notifier *notify.Notifier,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		returnRepo:  returnRepo,
		coupons:     coupons,
		stock:       stock,
		notifier:    notifier,
		now:         time.Now,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// checkout is the priced, snapshotted content of a checkout submission.
type checkout struct {
	items []model.OrderItem
	lines []inventory.Line
	cart  []model.CartLine
}

// CreateOrder runs the whole checkout in one transaction. Cart holds are
// released and the order announced only after the commit.
func (s *orderService) CreateOrder(ctx context.Context, req *model.OrderRequest) (order *model.Order, err error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, lines, err := s.place(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if req.CartID != "" {
		s.stock.Release(req.CartID, lines)
	}
	s.notifier.Notify(ctx, notify.OrderCreated, order)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Int64("total", order.Total).
		Msg("order created successfully")

	return order, nil
}

func (s *orderService) place(ctx context.Context, tx pgx.Tx, req *model.OrderRequest) (*model.Order, []inventory.Line, error) {
	now := s.now()
	orderID := uuid.New()

	co, err := s.snapshot(ctx, tx, orderID, req.Items)
	if err != nil {
		return nil, nil, err
	}

	userID := ""
	if req.UserID != nil {
		userID = *req.UserID
	}

	subtotal := coupon.Subtotal(co.cart)
	var (
		discount   int64
		couponCode *string
	)
	if req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != "" {
		c, err := s.coupons.ValidateTx(ctx, tx, coupon.Input{
			Code:       *req.CouponCode,
			OrderTotal: subtotal,
			UserID:     userID,
			Items:      co.cart,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("coupon_code", *req.CouponCode).Msg("coupon rejected at checkout")
			return nil, nil, err
		}
		discount = s.coupons.ComputeDiscount(subtotal, c, co.cart)
		couponCode = &c.Code
	}

	total := subtotal - discount + req.ShippingCost
	if req.ExpectedTotal != nil && *req.ExpectedTotal != total {
		s.logger.Warn().
			Int64("expected", *req.ExpectedTotal).
			Int64("computed", total).
			Msg("order total mismatch")
		return nil, nil, model.ErrTotalMismatch
	}

	if err := s.stock.Finalize(ctx, tx, co.lines); err != nil {
		return nil, nil, err
	}

	address, err := s.resolveAddress(ctx, tx, req)
	if err != nil {
		return nil, nil, err
	}

	order := &model.Order{
		ID:             orderID,
		UserID:         req.UserID,
		Items:          co.items,
		Subtotal:       subtotal,
		Discount:       discount,
		ShippingCost:   req.ShippingCost,
		Total:          total,
		CouponCode:     couponCode,
		PaymentMethod:  req.PaymentMethod,
		ShippingMethod: req.ShippingMethod,
		Address:        address,
		Status:         model.OrderStatusProcessing,
		Note:           req.Note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if address != nil {
		order.AddressID = &address.ID
	}

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(order.Items)).
			Msg("failed to create order items")
		return nil, nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if couponCode != nil {
		if err := s.coupons.RecordUsage(ctx, tx, *couponCode, userID); err != nil {
			return nil, nil, err
		}
	}

	return order, co.lines, nil
}

// snapshot prices every requested line from the live catalogue and freezes
// the result into order items.
func (s *orderService) snapshot(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, requested []model.OrderItemRequest) (*checkout, error) {
	ids := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, item := range requested {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.productRepo.GetByIDsTx(ctx, tx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(ids)).Msg("failed to load products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	co := &checkout{
		items: make([]model.OrderItem, 0, len(requested)),
		lines: make([]inventory.Line, 0, len(requested)),
		cart:  make([]model.CartLine, 0, len(requested)),
	}
	for _, req := range requested {
		p, ok := byID[req.ProductID]
		if !ok {
			s.logger.Warn().Str("product_id", req.ProductID).Msg("product not found at checkout")
			return nil, model.ErrProductNotFound
		}

		var v *model.Variant
		if req.VariantID != "" {
			if v, ok = p.Variant(req.VariantID); !ok {
				s.logger.Warn().
					Str("product_id", req.ProductID).
					Str("variant_id", req.VariantID).
					Msg("variant not found at checkout")
				return nil, model.ErrVariantNotFound
			}
		}

		item := model.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: p.ID,
			VariantID: req.VariantID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.UnitPrice(v),
			Quantity:  req.Quantity,
		}
		if v != nil {
			item.VariantName = v.Name
			item.Color = v.Color
			item.Size = v.Size
		}

		co.items = append(co.items, item)
		co.lines = append(co.lines, inventory.Line{Key: req.StockKey(), Quantity: req.Quantity})
		co.cart = append(co.cart, model.CartLine{
			ProductID:  p.ID,
			VariantID:  req.VariantID,
			CategoryID: p.CategoryID,
			Price:      item.Price,
			Quantity:   req.Quantity,
		})
	}

	return co, nil
}

// resolveAddress stores an embedded address or loads a referenced one. Orders
// without either ship nowhere (pickup, digital goods).
func (s *orderService) resolveAddress(ctx context.Context, tx pgx.Tx, req *model.OrderRequest) (*model.Address, error) {
	switch {
	case req.Address != nil:
		addr := *req.Address
		addr.ID = uuid.New()
		if addr.UserID == nil {
			addr.UserID = req.UserID
		}
		if err := s.orderRepo.CreateAddress(ctx, tx, &addr); err != nil {
			s.logger.Error().Err(err).Msg("failed to store shipping address")
			return nil, fmt.Errorf("failed to store shipping address: %w", err)
		}
		return &addr, nil

	case req.AddressID != nil:
		addr, err := s.orderRepo.GetAddress(ctx, tx, *req.AddressID)
		if err != nil {
			s.logger.Error().Err(err).Str("address_id", req.AddressID.String()).Msg("failed to load shipping address")
			return nil, fmt.Errorf("failed to load shipping address: %w", err)
		}
		if addr == nil {
			return nil, model.ErrAddressNotFound
		}
		return addr, nil
	}
	return nil, nil
}

// GetByID retrieves an order by its ID with items, address and returns.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	returns, err := s.returnRepo.ListByOrder(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order returns")
		return nil, fmt.Errorf("failed to get order returns: %w", err)
	}
	order.Returns = returns

	return order, nil
}

// ListByUser retrieves a page of the user's orders.
func (s *orderService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.MissingField("userId")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", userID).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list user orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("count", len(orders)).
		Msg("retrieved user orders")

	return orders, nil
}

// UpdateOrder applies patch under a row lock. Cancelling puts the purchased
// units back into stock in the same transaction.
func (s *orderService) UpdateOrder(ctx context.Context, id uuid.UUID, patch *model.OrderPatch) (order *model.Order, err error) {
	if patch == nil || patch.Empty() {
		return nil, model.InvalidInput("Nothing to update")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, err = s.orderRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if patch.Status != nil {
		from, to := order.Status, *patch.Status
		if !from.CanTransitionTo(to) {
			s.logger.Warn().
				Str("order_id", id.String()).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("illegal order transition")
			return nil, model.ErrIllegalTransition
		}
		if to == model.OrderStatusCancelled && from != to {
			if err = s.stock.Restock(ctx, tx, itemLines(order.Items)); err != nil {
				return nil, err
			}
		}
		order.Status = to
	}
	if patch.TrackingNumber != nil {
		order.TrackingNumber = patch.TrackingNumber
	}
	if patch.EstimatedDelivery != nil {
		order.EstimatedDelivery = patch.EstimatedDelivery
	}
	if patch.Note != nil {
		order.Note = *patch.Note
	}
	order.UpdatedAt = s.now()

	if err = s.orderRepo.Update(ctx, tx, order); err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return nil, err
		}
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.notifier.Notify(ctx, notify.OrderUpdated, order.ID)

	s.logger.Info().
		Str("order_id", id.String()).
		Str("status", string(order.Status)).
		Msg("order updated")

	return order, nil
}

// DeleteOrder hard-deletes the order. Stock is not restored.
func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	deleted, err := s.orderRepo.Delete(ctx, tx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if !deleted {
		return model.ErrOrderNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.notifier.Notify(ctx, notify.OrderDeleted, id)
	s.logger.Info().Str("order_id", id.String()).Msg("order deleted")

	return nil
}

// validateOrderRequest validates the checkout submission.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.InvalidInput("Order request is required")
	}

	if len(req.Items) == 0 {
		return model.ErrEmptyCart
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return model.MissingField("paymentMethod")
	}
	if strings.TrimSpace(req.ShippingMethod) == "" {
		return model.MissingField("shippingMethod")
	}
	if req.ShippingCost < 0 {
		return model.InvalidInput("Shipping cost must not be negative")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.MissingField(fmt.Sprintf("items[%d].productId", i))
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	if a := req.Address; a != nil {
		switch {
		case strings.TrimSpace(a.Recipient) == "":
			return model.MissingField("address.recipient")
		case strings.TrimSpace(a.Line1) == "":
			return model.MissingField("address.line1")
		case strings.TrimSpace(a.City) == "":
			return model.MissingField("address.city")
		}
	}

	return nil
}

func itemLines(items []model.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{Key: item.StockKey(), Quantity: item.Quantity}
	}
	return lines
}

// rollbackOnError rolls tx back when *errp is set. Meant to be deferred.
func rollbackOnError(ctx context.Context, tx pgx.Tx, errp *error, logger zerolog.Logger) {
	if *errp == nil {
		return
	}
	if rbErr := tx.Rollback(ctx); rbErr != nil {
		logger.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}
