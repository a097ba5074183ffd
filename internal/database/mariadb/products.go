package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/database"
)

// ProductReader reads products from a legacy MariaDB catalog. The schema mirrors
// the PostgreSQL one; the backend never writes.
type ProductReader struct {
	pool *Pool
}

// NewProductReader creates a new ProductReader
func NewProductReader(pool *Pool) *ProductReader {
	return &ProductReader{pool: pool}
}

func (r *ProductReader) ListActive(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT `+database.ProductColumns+` FROM products WHERE is_deleted = 0 ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := database.ScanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *ProductReader) Get(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := database.ScanProduct(r.pool.db.QueryRowContext(ctx,
		`SELECT `+database.ProductColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductReader) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE is_deleted = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}
