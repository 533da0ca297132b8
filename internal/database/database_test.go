package database

import (
	"context"
	"testing"
	"time"

	"storefront/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		Database:        "testdb",
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}
}

func TestNewPool_Success(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pool.Ping(ctx))
	assert.Equal(t, int32(5), pool.Config().MaxConns)
}

func TestNewPool_Unreachable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "127.0.0.1",
		Port:            1,
		User:            "postgres",
		Database:        "nope",
		MaxConnections:  1,
		MinConnections:  1,
		MaxConnLifetime: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, cfg, zerolog.Nop())

	require.Error(t, err)
	assert.Nil(t, pool)
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, Migrate(ctx, pool, zerolog.Nop()))
	require.NoError(t, Migrate(ctx, pool, zerolog.Nop()))

	var tables int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name IN ('products', 'product_variants', 'coupons', 'coupon_user_usage',
		                     'addresses', 'orders', 'order_items', 'return_requests', 'return_items')
	`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 9, tables)
}

func TestMigrate_RejectsNegativeStock(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool, zerolog.Nop()))

	_, err = pool.Exec(ctx, `INSERT INTO products (id, name, price, stock) VALUES ('p', 'P', 100, -1)`)
	assert.Error(t, err)
}
