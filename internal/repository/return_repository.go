package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const returnColumns = `id, order_id, reason, note, status, requested_at, decision_at, refund_amount`

// returnRepository implements ReturnRepository using PostgreSQL.
type returnRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReturnRepository creates a new PostgreSQL-backed return repository.
func NewReturnRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReturnRepository {
	return &returnRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "return").Logger(),
	}
}

// Create inserts the return request and its items in one batch.
func (r *returnRepository) Create(ctx context.Context, tx pgx.Tx, req *model.ReturnRequest) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO return_requests (`+returnColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.OrderID, req.Reason, req.Note, string(req.Status), req.RequestedAt, req.DecisionAt, req.RefundAmount)

	for _, item := range req.Items {
		batch.Queue(`
			INSERT INTO return_items (return_id, order_item_id, quantity)
			VALUES ($1, $2, $3)
		`, req.ID, item.OrderItemID, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("return_id", req.ID.String()).
				Str("order_id", req.OrderID.String()).
				Msg("failed to create return request")
			return fmt.Errorf("failed to create return request: %w", err)
		}
	}

	r.logger.Debug().
		Str("return_id", req.ID.String()).
		Int("items", len(req.Items)).
		Msg("return request created")

	return nil
}

// GetByID returns the request with its items, or nil.
func (r *returnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetForUpdate locks the request row until tx ends.
func (r *returnRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ReturnRequest, error) {
	return r.get(ctx, tx, id, true)
}

func (r *returnRepository) get(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.ReturnRequest, error) {
	query := `SELECT ` + returnColumns + ` FROM return_requests WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	req, err := scanReturn(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("return_id", id.String()).Msg("return request not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to query return request")
		return nil, fmt.Errorf("failed to query return request: %w", err)
	}

	items, err := r.itemsFor(ctx, q, []uuid.UUID{req.ID})
	if err != nil {
		return nil, err
	}
	req.Items = items[req.ID]

	return req, nil
}

// ListByOrder returns every return request of the order.
func (r *returnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.ReturnRequest, error) {
	query := `
		SELECT ` + returnColumns + `
		FROM return_requests
		WHERE order_id = $1
		ORDER BY requested_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query return requests")
		return nil, fmt.Errorf("failed to query return requests: %w", err)
	}
	defer rows.Close()

	var (
		returns []model.ReturnRequest
		ids     []uuid.UUID
	)
	for rows.Next() {
		req, err := scanReturn(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan return request row")
			return nil, fmt.Errorf("failed to scan return request: %w", err)
		}
		returns = append(returns, *req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating return request rows")
		return nil, fmt.Errorf("error iterating return requests: %w", err)
	}

	if len(ids) == 0 {
		return returns, nil
	}

	items, err := r.itemsFor(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range returns {
		returns[i].Items = items[returns[i].ID]
	}

	return returns, nil
}

// ClaimedQuantities sums quantities of non-rejected requests per order item.
func (r *returnRepository) ClaimedQuantities(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT ri.order_item_id, SUM(ri.quantity)
		FROM return_items ri
		JOIN return_requests rr ON rr.id = ri.return_id
		WHERE rr.order_id = $1 AND rr.status <> 'rejected'
		GROUP BY ri.order_item_id
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query claimed quantities")
		return nil, fmt.Errorf("failed to query claimed quantities: %w", err)
	}
	defer rows.Close()

	claimed := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			itemID uuid.UUID
			qty    int
		)
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan claimed quantity: %w", err)
		}
		claimed[itemID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed quantities: %w", err)
	}

	return claimed, nil
}

// RefundedTotal sums refunds already recorded on the order's other requests.
func (r *returnRepository) RefundedTotal(ctx context.Context, tx pgx.Tx, orderID, excludeID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(refund_amount), 0)::bigint
		FROM return_requests
		WHERE order_id = $1 AND id <> $2 AND status <> 'rejected'
	`

	var total int64
	if err := tx.QueryRow(ctx, query, orderID, excludeID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to sum refunds")
		return 0, fmt.Errorf("failed to sum refunds: %w", err)
	}
	return total, nil
}

// Update writes the administrator's decision.
func (r *returnRepository) Update(ctx context.Context, tx pgx.Tx, req *model.ReturnRequest) error {
	query := `
		UPDATE return_requests
		SET status = $2, note = $3, decision_at = $4, refund_amount = $5
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, req.ID, string(req.Status), req.Note, req.DecisionAt, req.RefundAmount)
	if err != nil {
		r.logger.Error().Err(err).Str("return_id", req.ID.String()).Msg("failed to update return request")
		return fmt.Errorf("failed to update return request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}
	return nil
}

func (r *returnRepository) itemsFor(ctx context.Context, q querier, returnIDs []uuid.UUID) (map[uuid.UUID][]model.ReturnItem, error) {
	query := `
		SELECT return_id, order_item_id, quantity
		FROM return_items
		WHERE return_id = ANY($1)
		ORDER BY return_id, order_item_id
	`

	rows, err := q.Query(ctx, query, returnIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query return items")
		return nil, fmt.Errorf("failed to query return items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]model.ReturnItem, len(returnIDs))
	for rows.Next() {
		var (
			returnID uuid.UUID
			item     model.ReturnItem
		)
		if err := rows.Scan(&returnID, &item.OrderItemID, &item.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan return item row")
			return nil, fmt.Errorf("failed to scan return item: %w", err)
		}
		items[returnID] = append(items[returnID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating return items: %w", err)
	}

	return items, nil
}

func scanReturn(row pgx.Row) (*model.ReturnRequest, error) {
	var (
		req    model.ReturnRequest
		status string
	)
	err := row.Scan(
		&req.ID,
		&req.OrderID,
		&req.Reason,
		&req.Note,
		&status,
		&req.RequestedAt,
		&req.DecisionAt,
		&req.RefundAmount,
	)
	if err != nil {
		return nil, err
	}
	req.Status = model.ReturnStatus(status)
	return &req, nil
}
