package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// returnService implements ReturnService.
type returnService struct {
	orderRepo  repository.OrderRepository
	returnRepo repository.ReturnRepository
	notifier   *notify.Notifier
	now        func() time.Time
	logger     zerolog.Logger
}

// NewReturnService creates a new return service.
func NewReturnService(
	orderRepo repository.OrderRepository,
	returnRepo repository.ReturnRepository,
	notifier *notify.Notifier,
	logger zerolog.Logger,
) ReturnService {
	return &returnService{
		orderRepo:  orderRepo,
		returnRepo: returnRepo,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger.With().Str("service", "return").Logger(),
	}
}

// RequestReturn files a request against a delivered order. Each item may be
// returned at most as many times as it was bought, counting requests that
// were not rejected.
func (s *returnService) RequestReturn(ctx context.Context, orderID uuid.UUID, in *model.ReturnRequestInput) (rr *model.ReturnRequest, err error) {
	items, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to request return: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to request return: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.OrderStatusDelivered {
		s.logger.Debug().
			Str("order_id", orderID.String()).
			Str("status", string(order.Status)).
			Msg("return requested for undelivered order")
		return nil, model.ErrOrderNotReturnable
	}

	claimed, err := s.returnRepo.ClaimedQuantities(ctx, tx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to load claimed quantities")
		return nil, fmt.Errorf("failed to request return: %w", err)
	}

	purchased := make(map[uuid.UUID]int, len(order.Items))
	for _, item := range order.Items {
		purchased[item.ID] = item.Quantity
	}
	for _, item := range items {
		bought, ok := purchased[item.OrderItemID]
		if !ok {
			return nil, model.ErrReturnItemUnknown
		}
		if claimed[item.OrderItemID]+item.Quantity > bought {
			s.logger.Warn().
				Str("order_id", orderID.String()).
				Str("order_item_id", item.OrderItemID.String()).
				Int("purchased", bought).
				Int("claimed", claimed[item.OrderItemID]).
				Int("requested", item.Quantity).
				Msg("return quantity exceeds purchase")
			return nil, model.ErrReturnQuantityExceeded
		}
	}

	rr = &model.ReturnRequest{
		ID:          uuid.New(),
		OrderID:     orderID,
		Items:       items,
		Reason:      strings.TrimSpace(in.Reason),
		Note:        in.Note,
		Status:      model.ReturnStatusRequested,
		RequestedAt: s.now(),
	}

	if err = s.returnRepo.Create(ctx, tx, rr); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to create return request")
		return nil, fmt.Errorf("failed to request return: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("return_id", rr.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to request return: %w", err)
	}

	s.logger.Info().
		Str("return_id", rr.ID.String()).
		Str("order_id", orderID.String()).
		Int("item_count", len(items)).
		Msg("return requested")

	return rr, nil
}

// Decide applies an administrator decision. The decision time is stamped for
// every status other than requested; note-only edits leave it alone.
func (s *returnService) Decide(ctx context.Context, id uuid.UUID, d *model.ReturnDecision) (rr *model.ReturnRequest, err error) {
	if d == nil || d.Status == "" {
		return nil, model.MissingField("status")
	}
	if !d.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	if d.RefundAmount != nil {
		if *d.RefundAmount < 0 {
			return nil, model.ErrInvalidRefund
		}
		if d.Status != model.ReturnStatusApproved && d.Status != model.ReturnStatusRefunded {
			return nil, model.InvalidInput("A refund amount can only be set when approving or refunding")
		}
	}

	// Learn the order first so locks are always taken order, then request.
	current, err := s.returnRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to get return request")
		return nil, fmt.Errorf("failed to decide return: %w", err)
	}
	if current == nil {
		return nil, model.ErrReturnNotFound
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to decide return: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, current.OrderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", current.OrderID.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to decide return: %w", err)
	}
	if order == nil {
		return nil, model.ErrReturnNotFound
	}

	rr, err = s.returnRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to lock return request")
		return nil, fmt.Errorf("failed to decide return: %w", err)
	}
	if rr == nil {
		return nil, model.ErrReturnNotFound
	}

	if !rr.Status.CanTransitionTo(d.Status) {
		s.logger.Warn().
			Str("return_id", id.String()).
			Str("from", string(rr.Status)).
			Str("to", string(d.Status)).
			Msg("illegal return transition")
		return nil, model.ErrIllegalTransition
	}

	if err = s.settleRefund(ctx, tx, order, rr, d); err != nil {
		return nil, err
	}

	rr.Status = d.Status
	if d.Note != nil {
		rr.Note = d.Note
	}
	if d.Status != model.ReturnStatusRequested {
		decided := s.now()
		rr.DecisionAt = &decided
	}

	if err = s.returnRepo.Update(ctx, tx, rr); err != nil {
		if _, ok := model.AsDomainError(err); ok {
			return nil, err
		}
		s.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to update return request")
		return nil, fmt.Errorf("failed to decide return: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to decide return: %w", err)
	}

	s.notifier.Notify(ctx, notify.ReturnDecided, rr)

	s.logger.Info().
		Str("return_id", id.String()).
		Str("status", string(rr.Status)).
		Msg("return decided")

	return rr, nil
}

// settleRefund sets rr.RefundAmount from the decision. The order's refunds
// together never exceed its total. Refunding without an amount pays back the
// snapshot value of the returned lines.
func (s *returnService) settleRefund(ctx context.Context, tx pgx.Tx, order *model.Order, rr *model.ReturnRequest, d *model.ReturnDecision) error {
	amount := d.RefundAmount
	if amount == nil && d.Status == model.ReturnStatusRefunded && rr.RefundAmount == nil {
		v := returnedValue(order, rr)
		amount = &v
	}
	if amount == nil {
		return nil
	}

	refunded, err := s.returnRepo.RefundedTotal(ctx, tx, order.ID, rr.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to sum refunds")
		return fmt.Errorf("failed to decide return: %w", err)
	}
	remaining := max(0, order.Total-refunded)

	if d.RefundAmount == nil {
		// Defaulted amounts are capped rather than rejected.
		*amount = min(*amount, remaining)
	} else if *amount > remaining {
		s.logger.Warn().
			Str("return_id", rr.ID.String()).
			Int64("amount", *amount).
			Int64("remaining", remaining).
			Msg("refund exceeds order total")
		return model.ErrRefundExceedsTotal
	}

	rr.RefundAmount = amount
	return nil
}

func returnedValue(order *model.Order, rr *model.ReturnRequest) int64 {
	prices := make(map[uuid.UUID]int64, len(order.Items))
	for _, item := range order.Items {
		prices[item.ID] = item.Price
	}
	var total int64
	for _, item := range rr.Items {
		total += prices[item.OrderItemID] * int64(item.Quantity)
	}
	return total
}

// GetByID retrieves a return request.
func (s *returnService) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	rr, err := s.returnRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to get return request")
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	if rr == nil {
		return nil, model.ErrReturnNotFound
	}
	return rr, nil
}

// validateInput checks the submission and merges repeated items.
func (s *returnService) validateInput(in *model.ReturnRequestInput) ([]model.ReturnItem, error) {
	if in == nil || len(in.Items) == 0 {
		return nil, model.MissingField("items")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, model.MissingField("reason")
	}

	merged := make([]model.ReturnItem, 0, len(in.Items))
	index := make(map[uuid.UUID]int, len(in.Items))
	for _, item := range in.Items {
		if item.OrderItemID == uuid.Nil {
			return nil, model.MissingField("items.orderItemId")
		}
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		if i, ok := index[item.OrderItemID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.OrderItemID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
