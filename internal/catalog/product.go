// Package catalog holds the product model shared by storage backends, the
// image search and the HTTP layer.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Shape is the 3D primitive used to preview a product.
type Shape string

const (
	ShapeBox      Shape = "box"
	ShapeCylinder Shape = "cylinder"
	ShapePillow   Shape = "pillow"
)

// Product is a catalog entry. Image fields hold storage references such as
// "/uploads/5f1c....jpg".
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	OriginalPrice     float64   `json:"originalPrice"`
	DiscountPrice     float64   `json:"discountPrice"`
	CategoryID        string    `json:"categoryId"`
	Quantity          int       `json:"quantity"`
	ManufacturingDate time.Time `json:"manufacturingDate"`
	ExpiryDate        time.Time `json:"expiryDate"`
	BatchNumber       string    `json:"batchNumber"`
	RackNumber        int       `json:"rackNumber"`
	Shape             Shape     `json:"shape"`

	Image       string `json:"image,omitempty"` // legacy single image
	ImageFront  string `json:"imageFront,omitempty"`
	ImageSide   string `json:"imageSide,omitempty"`
	ImageBack   string `json:"imageBack,omitempty"`
	ImageTop    string `json:"imageTop,omitempty"`
	ImageBottom string `json:"imageBottom,omitempty"`
	Model3D     string `json:"model3D,omitempty"`

	IsExpired bool      `json:"isExpired"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewID returns a fresh product identifier.
func NewID() string {
	return uuid.NewString()
}

// PrimaryImage returns the reference used for visual search: the legacy single
// image when present, otherwise the front view. Empty when neither is set.
func (p *Product) PrimaryImage() string {
	if p.Image != "" {
		return p.Image
	}
	return p.ImageFront
}

// Files returns every stored file reference owned by the product.
func (p *Product) Files() []string {
	var files []string
	for _, ref := range []string{p.Image, p.ImageFront, p.ImageSide, p.ImageBack, p.ImageTop, p.ImageBottom, p.Model3D} {
		if ref != "" {
			files = append(files, ref)
		}
	}
	return files
}

// RefreshExpiry recomputes IsExpired relative to now.
func (p *Product) RefreshExpiry(now time.Time) {
	p.IsExpired = p.ExpiryDate.Before(now)
}

// File returns the stored reference held by the file field with the given form
// name, or "" for unknown fields.
func (p *Product) File(field string) string {
	switch field {
	case FieldImage:
		return p.Image
	case FieldImageFront:
		return p.ImageFront
	case FieldImageSide:
		return p.ImageSide
	case FieldImageBack:
		return p.ImageBack
	case FieldImageTop:
		return p.ImageTop
	case FieldImageBottom:
		return p.ImageBottom
	case FieldModel3D:
		return p.Model3D
	}
	return ""
}

// SetFile assigns a stored reference to the image field with the given form name.
// Unknown field names are ignored.
func (p *Product) SetFile(field, ref string) {
	switch field {
	case FieldImage:
		p.Image = ref
	case FieldImageFront:
		p.ImageFront = ref
	case FieldImageSide:
		p.ImageSide = ref
	case FieldImageBack:
		p.ImageBack = ref
	case FieldImageTop:
		p.ImageTop = ref
	case FieldImageBottom:
		p.ImageBottom = ref
	case FieldModel3D:
		p.Model3D = ref
	}
}
