package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/product-matcher/internal/catalog"
)

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicate is returned when an identical product was already stored.
	ErrDuplicate = errors.New("product already exists")
	// ErrReadOnly is returned when writes are requested from a read-only backend.
	ErrReadOnly = errors.New("catalog backend is read-only")
)

// ProductReader provides read-only access to the product catalog
type ProductReader interface {
	// ListActive returns all products not marked as deleted, newest first
	ListActive(ctx context.Context) ([]catalog.Product, error)
	// Get retrieves a product by ID, returns ErrNotFound if missing
	Get(ctx context.Context, id string) (*catalog.Product, error)
	// Count returns the number of products not marked as deleted
	Count(ctx context.Context) (int, error)
}

// ProductWriter provides write access to the product catalog
type ProductWriter interface {
	ProductReader

	// Create stores a new product. Returns ErrDuplicate when a product with the same
	// name, original price, manufacturing and expiry dates and batch number exists.
	Create(ctx context.Context, p *catalog.Product) error

	// Update stores the editable fields and file references of an existing product
	// and refreshes its UpdatedAt. Returns ErrNotFound if missing and ErrDuplicate
	// when the change collides with another product.
	Update(ctx context.Context, p *catalog.Product) error

	// Delete removes a product and returns it so the caller can clean up its files.
	// Returns ErrNotFound if missing.
	Delete(ctx context.Context, id string) (*catalog.Product, error)
}
