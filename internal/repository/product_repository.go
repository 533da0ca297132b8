package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByIDsTx retrieves products with their variants within the provided
// transaction.
func (r *productRepository) GetByIDsTx(ctx context.Context, tx pgx.Tx, ids []string) ([]model.Product, error) {
	return r.getByIDs(ctx, tx, ids)
}

func (r *productRepository) getByIDs(ctx context.Context, q querier, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, name, price, stock, category_id, image, created_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	index := make(map[string]int, len(ids))
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CategoryID, &p.Image, &p.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if len(products) == 0 {
		return products, nil
	}

	variantQuery := `
		SELECT id, product_id, name, color, size, price, stock
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, id
	`

	vrows, err := q.Query(ctx, variantQuery, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product variants")
		return nil, fmt.Errorf("failed to query product variants: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var v model.Variant
		if err := vrows.Scan(&v.ID, &v.ProductID, &v.Name, &v.Color, &v.Size, &v.Price, &v.Stock); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}

	if err := vrows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating variant rows")
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return products, nil
}

// GetStock returns the units on hand for key.
func (r *productRepository) GetStock(ctx context.Context, key model.StockKey) (int, error) {
	var (
		query string
		args  []any
		miss  error
	)
	if key.VariantID == "" {
		query = `SELECT stock FROM products WHERE id = $1`
		args = []any{key.ProductID}
		miss = model.ErrProductNotFound
	} else {
		query = `SELECT stock FROM product_variants WHERE product_id = $1 AND id = $2`
		args = []any{key.ProductID, key.VariantID}
		miss = model.ErrVariantNotFound
	}

	var stock int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&stock); err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("stock_key", key.String()).Msg("stock bucket not found")
			return 0, miss
		}
		r.logger.Error().Err(err).Str("stock_key", key.String()).Msg("failed to query stock")
		return 0, fmt.Errorf("failed to query stock: %w", err)
	}

	return stock, nil
}

// DecrementStock is a single conditional UPDATE, so two checkouts racing for
// the last units cannot both succeed.
func (r *productRepository) DecrementStock(ctx context.Context, tx pgx.Tx, key model.StockKey, qty int) (bool, error) {
	var (
		query string
		args  []any
	)
	if key.VariantID == "" {
		query = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`
		args = []any{key.ProductID, qty}
	} else {
		query = `UPDATE product_variants SET stock = stock - $3 WHERE product_id = $1 AND id = $2 AND stock >= $3`
		args = []any{key.ProductID, key.VariantID, qty}
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("stock_key", key.String()).Int("quantity", qty).Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// IncrementStock adds qty units back to the bucket.
func (r *productRepository) IncrementStock(ctx context.Context, tx pgx.Tx, key model.StockKey, qty int) error {
	var (
		query string
		args  []any
	)
	if key.VariantID == "" {
		query = `UPDATE products SET stock = stock + $2 WHERE id = $1`
		args = []any{key.ProductID, qty}
	} else {
		query = `UPDATE product_variants SET stock = stock + $3 WHERE product_id = $1 AND id = $2`
		args = []any{key.ProductID, key.VariantID, qty}
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("stock_key", key.String()).Int("quantity", qty).Msg("failed to increment stock")
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	// The product may have been removed from the catalogue since the order
	// was placed; there is nothing to restock then.
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("stock_key", key.String()).Msg("restock target no longer exists")
	}

	return nil
}
