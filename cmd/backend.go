package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/database/mariadb"
	"github.com/kozaktomas/product-matcher/internal/database/postgres"
	"github.com/kozaktomas/product-matcher/internal/logger"
	"go.uber.org/zap"
)

// openCatalog connects the configured catalog backend and registers it with the
// database package. The returned closer releases the connection pool.
func openCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (io.Closer, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Database.Driver {
	case "postgres", "postgresql":
		pool, err := postgres.Open(ctx, &cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		repo := postgres.NewProductRepository(pool)
		database.RegisterProductBackend("postgres",
			func() database.ProductReader { return repo },
			func() database.ProductWriter { return repo })
		return pool, nil

	case "mysql", "mariadb":
		pool, err := mariadb.NewPool(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		reader := mariadb.NewProductReader(pool)
		database.RegisterProductBackend("mysql",
			func() database.ProductReader { return reader },
			nil)
		log.Info("legacy MariaDB catalog is read-only, product writes are disabled")
		return pool, nil

	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or mysql)", cfg.Database.Driver)
	}
}

// catalogSummary describes the registered backend: its name, whether it accepts
// writes and how many active products it holds.
func catalogSummary(ctx context.Context) (string, error) {
	reader, err := database.GetProductReader(ctx)
	if err != nil {
		return "", err
	}
	count, err := reader.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("counting products: %w", err)
	}
	mode := "read-write"
	if _, err := database.GetProductWriter(ctx); errors.Is(err, database.ErrReadOnly) {
		mode = "read-only"
	}
	return fmt.Sprintf("%s catalog (%s) with %d active products", database.BackendName(), mode, count), nil
}

// newLogger builds the process logger, falling back to defaults on a bad level.
func newLogger(cfg *config.Config) *zap.Logger {
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info level\n", err)
		log, _ = logger.New(logger.Config{Format: cfg.Log.Format})
	}
	return log
}
