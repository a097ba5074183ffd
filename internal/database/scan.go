package database

import (
	"fmt"
	"time"

	"github.com/kozaktomas/product-matcher/internal/catalog"
)

// ProductColumns is the column list every SQL backend selects, in ScanProduct order.
const ProductColumns = `id, name, description, original_price, discount_price, category_id, quantity,
	manufacturing_date, expiry_date, batch_number, rack_number, shape,
	image, image_front, image_side, image_back, image_top, image_bottom, model_3d,
	is_deleted, created_at, updated_at`

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanProduct reads one row selected with ProductColumns.
func ScanProduct(row RowScanner) (*catalog.Product, error) {
	var p catalog.Product
	var shape string
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.OriginalPrice, &p.DiscountPrice, &p.CategoryID, &p.Quantity,
		&p.ManufacturingDate, &p.ExpiryDate, &p.BatchNumber, &p.RackNumber, &shape,
		&p.Image, &p.ImageFront, &p.ImageSide, &p.ImageBack, &p.ImageTop, &p.ImageBottom, &p.Model3D,
		&p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Shape = catalog.Shape(shape)
	p.RefreshExpiry(time.Now())
	return &p, nil
}
