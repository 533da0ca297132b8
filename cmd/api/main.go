package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/inventory"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// options are the process flags.
type options struct {
	envFile     string
	migrate     bool
	seedCoupons bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}

	fs := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file preloaded into the environment")
	fs.BoolVar(&opts.migrate, "migrate", false, "apply the database schema before serving")
	fs.BoolVar(&opts.seedCoupons, "seed-coupons", false, "import the coupon catalogue before serving")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// The default .env is optional; an explicit one must exist.
	if err := config.LoadEnvFile(opts.envFile, opts.envFile == ".env"); err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if opts.migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	returnRepo := repository.NewReturnRepository(pool, logger)

	if opts.seedCoupons {
		if err := seedCoupons(ctx, cfg, couponRepo, logger); err != nil {
			return err
		}
	}

	coupons := coupon.NewEngine(couponRepo, time.Now, logger)
	stock := inventory.NewManager(productRepo, inventory.Options{TTL: cfg.Holds.TTL}, logger)
	notifier := notify.NewNotifier(notify.NewMultiDispatcher(notify.NewLogDispatcher(logger)), logger)

	// Initialize services
	couponService := service.NewCouponService(coupons, couponRepo, logger)
	cartService := service.NewCartService(stock, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, returnRepo, coupons, stock, notifier, logger)
	returnService := service.NewReturnService(orderRepo, returnRepo, notifier, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Coupons: handler.NewCouponHandler(couponService, logger),
		Carts:   handler.NewCartHandler(cartService, logger),
		Orders:  handler.NewOrderHandler(orderService, logger),
		Returns: handler.NewReturnHandler(returnService, logger),
	}, cfg.Auth.APIKey, logger)

	return serve(cfg.Server, mux, pool, logger)
}

// seedCoupons imports the configured catalogue, from S3 when enabled with the
// local file as fallback.
func seedCoupons(ctx context.Context, cfg *config.Config, w coupon.Writer, logger zerolog.Logger) error {
	fileLoader := coupon.NewFileLoader(logger)

	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		l, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)
	if _, err := coupon.Import(ctx, loader, cfg.Coupons.SeedPath, w, logger); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}
	return nil
}

func serve(cfg config.ServerConfig, h http.Handler, pool *pgxpool.Pool, logger zerolog.Logger) error {
	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().
			Int32("open_connections", pool.Stat().TotalConns()).
			Msg("server shutdown completed")
	}

	return nil
}
