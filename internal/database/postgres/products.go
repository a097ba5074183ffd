package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/lib/pq"
)

// SQLSTATE codes the repository translates into database errors.
const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// ProductRepository provides PostgreSQL-backed product storage
type ProductRepository struct {
	pool *Pool
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(pool *Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+database.ProductColumns+` FROM products WHERE is_deleted = FALSE ORDER BY created_at DESC, id`)
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

func (r *ProductRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := database.ScanProduct(r.pool.QueryRow(ctx,
		`SELECT `+database.ProductColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		// A malformed UUID cannot name any stored product.
		if hasCode(err, invalidTextRepresentation) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE is_deleted = FALSE").Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	if p.ID == "" {
		p.ID = catalog.NewID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Shape == "" {
		p.Shape = catalog.ShapeBox
	}

	_, err := r.pool.Exec(ctx, `INSERT INTO products (`+database.ProductColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		p.ID, p.Name, p.Description, p.OriginalPrice, p.DiscountPrice, p.CategoryID, p.Quantity,
		p.ManufacturingDate, p.ExpiryDate, p.BatchNumber, p.RackNumber, string(p.Shape),
		p.Image, p.ImageFront, p.ImageSide, p.ImageBack, p.ImageTop, p.ImageBottom, p.Model3D,
		p.IsDeleted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if hasCode(err, uniqueViolation) {
			return database.ErrDuplicate
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	p.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `UPDATE products SET
			name = $2, description = $3, original_price = $4, discount_price = $5, category_id = $6,
			quantity = $7, shape = $8, image = $9, image_front = $10, image_side = $11, image_back = $12,
			image_top = $13, image_bottom = $14, model_3d = $15, updated_at = $16
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.OriginalPrice, p.DiscountPrice, p.CategoryID,
		p.Quantity, string(p.Shape), p.Image, p.ImageFront, p.ImageSide, p.ImageBack,
		p.ImageTop, p.ImageBottom, p.Model3D, p.UpdatedAt)
	if err != nil {
		switch {
		case hasCode(err, uniqueViolation):
			return database.ErrDuplicate
		case hasCode(err, invalidTextRepresentation):
			return database.ErrNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := database.ScanProduct(r.pool.QueryRow(ctx,
		`DELETE FROM products WHERE id = $1 RETURNING `+database.ProductColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		if hasCode(err, invalidTextRepresentation) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}
