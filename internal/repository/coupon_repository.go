package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const couponColumns = `
	id, code, type, value::text, active, starts_at, ends_at, max_uses, used_count,
	max_uses_per_user, min_order_amount, product_ids, category_ids, created_at, updated_at
`

// couponRepository implements CouponRepository using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// FindByCode returns the coupon with the given code or nil.
func (r *couponRepository) FindByCode(ctx context.Context, code, userID string) (*model.Coupon, error) {
	return r.find(ctx, r.pool, code, userID, false)
}

// FindByCodeForUpdate locks the coupon row until tx ends.
func (r *couponRepository) FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code, userID string) (*model.Coupon, error) {
	return r.find(ctx, tx, code, userID, true)
}

func (r *couponRepository) find(ctx context.Context, q querier, code, userID string, lock bool) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	c, err := scanCoupon(q.QueryRow(ctx, query, code))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("coupon_code", code).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	if userID == "" {
		return c, nil
	}

	usageQuery := `SELECT used_count FROM coupon_user_usage WHERE coupon_id = $1 AND user_id = $2`
	if lock {
		usageQuery += ` FOR UPDATE`
	}

	var used int
	err = q.QueryRow(ctx, usageQuery, c.ID, userID).Scan(&used)
	if err != nil && !isNoRows(err) {
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon usage")
		return nil, fmt.Errorf("failed to query coupon usage: %w", err)
	}
	c.UserUsage = map[string]int{userID: used}

	return c, nil
}

// IncrementUsage bumps used_count with a guarded UPDATE and then the user's
// counter with a guarded upsert. Either guard failing leaves nothing changed
// once the caller rolls back.
func (r *couponRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, code, userID string) error {
	var (
		couponID   uuid.UUID
		perUserCap *int
	)
	err := tx.QueryRow(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = $1 AND (max_uses IS NULL OR used_count < max_uses)
		RETURNING id, max_uses_per_user
	`, code).Scan(&couponID, &perUserCap)
	if err != nil {
		if !isNoRows(err) {
			r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to increment coupon usage")
			return fmt.Errorf("failed to increment coupon usage: %w", err)
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`, code).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check coupon: %w", err)
		}
		if !exists {
			return model.ErrCouponNotFound
		}
		return model.ErrCouponUsageCapReached
	}

	if userID == "" {
		return nil
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO coupon_user_usage (coupon_id, user_id, used_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (coupon_id, user_id) DO UPDATE
		SET used_count = coupon_user_usage.used_count + 1
		WHERE $3::int IS NULL OR coupon_user_usage.used_count < $3::int
	`, couponID, userID, perUserCap)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to increment per-user coupon usage")
		return fmt.Errorf("failed to increment per-user coupon usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCouponPerUserCapReached
	}

	return nil
}

// Upsert creates or redefines a coupon keyed by code.
func (r *couponRepository) Upsert(ctx context.Context, c *model.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO coupons (
			id, code, type, value, active, starts_at, ends_at, max_uses,
			max_uses_per_user, min_order_amount, product_ids, category_ids
		)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE SET
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			active = EXCLUDED.active,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			max_uses = EXCLUDED.max_uses,
			max_uses_per_user = EXCLUDED.max_uses_per_user,
			min_order_amount = EXCLUDED.min_order_amount,
			product_ids = EXCLUDED.product_ids,
			category_ids = EXCLUDED.category_ids,
			updated_at = NOW()
		RETURNING id, used_count, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		c.ID,
		model.NormalizeCode(c.Code),
		string(c.Type),
		c.Value.String(),
		c.Active,
		c.StartsAt,
		c.EndsAt,
		c.MaxUses,
		c.MaxUsesPerUser,
		c.MinOrderAmount,
		textArray(c.ProductIDs),
		textArray(c.CategoryIDs),
	).Scan(&c.ID, &c.UsedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_code", c.Code).Msg("failed to upsert coupon")
		return fmt.Errorf("failed to upsert coupon: %w", err)
	}

	r.logger.Debug().Str("coupon_code", c.Code).Msg("coupon upserted")
	return nil
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var (
		c     model.Coupon
		typ   string
		value string
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&typ,
		&value,
		&c.Active,
		&c.StartsAt,
		&c.EndsAt,
		&c.MaxUses,
		&c.UsedCount,
		&c.MaxUsesPerUser,
		&c.MinOrderAmount,
		&c.ProductIDs,
		&c.CategoryIDs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = model.DiscountType(typ)
	c.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid coupon value %q: %w", value, err)
	}
	return &c, nil
}
