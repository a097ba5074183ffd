package catalog

import (
	"strconv"
	"strings"
	"time"
)

// FileFields lists every multipart field that carries a product file.
var FileFields = []string{FieldImage, FieldImageFront, FieldImageSide, FieldImageBack, FieldImageTop, FieldImageBottom, FieldModel3D}

// ProductPatch is a partial product update as received from a form. Empty
// fields are left unchanged. Dates, batch and rack number are part of a
// product's identity and cannot be patched.
type ProductPatch struct {
	Name          string
	Description   string
	OriginalPrice string
	DiscountPrice string
	CategoryID    string
	Quantity      string
	Shape         string
}

func (f *ProductPatch) trim() {
	for _, s := range []*string{
		&f.Name, &f.Description, &f.OriginalPrice, &f.DiscountPrice, &f.CategoryID, &f.Quantity, &f.Shape,
	} {
		*s = strings.TrimSpace(*s)
	}
}

// Apply validates the provided fields against the same rules as a new product
// and writes them to p. p is unchanged when a rule fails.
func (f ProductPatch) Apply(p *Product, now time.Time) error {
	f.trim()
	next := *p

	if f.Name != "" {
		if validate.Var(f.Name, "productname") != nil {
			return invalid("Product name must be 4–15 characters long and contain only letters, numbers, and spaces")
		}
		next.Name = f.Name
	}
	if f.Description != "" {
		if validate.Var(f.Description, "productdesc") != nil {
			return invalid("Description must be 4–20 characters long and contain only letters, numbers, and spaces")
		}
		next.Description = f.Description
	}

	for _, price := range []struct {
		raw string
		dst *float64
	}{
		{f.OriginalPrice, &next.OriginalPrice},
		{f.DiscountPrice, &next.DiscountPrice},
	} {
		if price.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(price.raw, 64)
		if err != nil || validate.Var(v, "gte=1,lte=1000") != nil {
			return invalid("Prices must be numbers between 1 and 1000")
		}
		*price.dst = v
	}
	if next.DiscountPrice > next.OriginalPrice {
		return invalid("Discount price cannot be greater than original price")
	}

	if f.CategoryID != "" {
		next.CategoryID = f.CategoryID
	}
	if f.Quantity != "" {
		qty, err := strconv.Atoi(f.Quantity)
		if err != nil || validate.Var(qty, "gte=0") != nil {
			return invalid("Quantity must be a valid number (0 or greater)")
		}
		next.Quantity = qty
	}
	if f.Shape != "" {
		if validate.Var(f.Shape, "oneof=box cylinder pillow") != nil {
			return invalid("Shape must be one of box, cylinder or pillow")
		}
		next.Shape = Shape(f.Shape)
	}

	next.UpdatedAt = now
	next.RefreshExpiry(now)
	*p = next
	return nil
}
