package integration

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, connects to it the way the
// server does and applies the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	// Create connection pool
	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  20,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	logger := zerolog.Nop()
	pool, err := database.NewPool(ctx, dbConfig, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Create schema
	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedCatalogue inserts the test catalogue:
//
//	tee   15000, category tops, variants red-m (stock 4) and blue-l (17000, stock 1)
//	mug    5000, stock 10
//	cap    2500, stock 2
func SeedCatalogue(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id       string
		name     string
		price    int64
		stock    int
		category string
	}{
		{"tee", "Logo Tee", 15000, 0, "tops"},
		{"mug", "Enamel Mug", 5000, 10, "kitchen"},
		{"cap", "Canvas Cap", 2500, 2, "accessories"},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			"INSERT INTO products (id, name, price, stock, category_id) VALUES ($1, $2, $3, $4, $5)",
			p.id, p.name, p.price, p.stock, p.category,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}

	variants := []struct {
		id    string
		name  string
		color string
		size  string
		price *int64
		stock int
	}{
		{"red-m", "Red / M", "red", "M", nil, 4},
		{"blue-l", "Blue / L", "blue", "L", int64Ptr(17000), 1},
	}

	for _, v := range variants {
		_, err := pool.Exec(ctx,
			"INSERT INTO product_variants (product_id, id, name, color, size, price, stock) VALUES ('tee', $1, $2, $3, $4, $5, $6)",
			v.id, v.name, v.color, v.size, v.price, v.stock,
		)
		if err != nil {
			t.Fatalf("failed to seed variant %s: %v", v.id, err)
		}
	}
}

// SeedCoupons writes coupons to a gzipped catalogue file and imports it
// through the file loader.
func SeedCoupons(t *testing.T, pool *pgxpool.Pool, coupons ...model.Coupon) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coupons.jsonl.gz")
	WriteCatalogue(t, path, coupons...)

	logger := zerolog.Nop()
	repo := repository.NewCouponRepository(pool, logger)
	if _, err := coupon.Import(context.Background(), coupon.NewFileLoader(logger), path, repo, logger); err != nil {
		t.Fatalf("failed to seed coupons: %v", err)
	}
}

// WriteCatalogue writes a gzipped JSON-lines coupon catalogue.
func WriteCatalogue(t *testing.T, path string, coupons ...model.Coupon) {
	t.Helper()

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create catalogue: %v", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	enc := json.NewEncoder(gz)
	for i := range coupons {
		if err := enc.Encode(&coupons[i]); err != nil {
			t.Fatalf("failed to write coupon: %v", err)
		}
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close catalogue: %v", err)
	}
}

// StockOf reads the stock of a product or one of its variants.
func StockOf(t *testing.T, pool *pgxpool.Pool, key model.StockKey) int {
	t.Helper()

	var stock int
	var err error
	if key.VariantID == "" {
		err = pool.QueryRow(context.Background(), "SELECT stock FROM products WHERE id = $1", key.ProductID).Scan(&stock)
	} else {
		err = pool.QueryRow(context.Background(),
			"SELECT stock FROM product_variants WHERE product_id = $1 AND id = $2", key.ProductID, key.VariantID).Scan(&stock)
	}
	if err != nil {
		t.Fatalf("failed to read stock of %s: %v", key, err)
	}
	return stock
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"TRUNCATE return_items, return_requests, order_items, orders, addresses, coupon_user_usage, coupons, product_variants, products")
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

func int64Ptr(n int64) *int64 { return &n }
