package catalog

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Multipart field names carrying product files.
const (
	FieldImage       = "image"
	FieldImageFront  = "imageFront"
	FieldImageSide   = "imageSide"
	FieldImageBack   = "imageBack"
	FieldImageTop    = "imageTop"
	FieldImageBottom = "imageBottom"
	FieldModel3D     = "model3D"
)

// ImageFields lists the file fields that must hold JPEG, PNG or GIF images.
var ImageFields = []string{FieldImage, FieldImageFront, FieldImageSide, FieldImageBack, FieldImageTop, FieldImageBottom}

// MinShelfLifeDays is the minimum gap between manufacturing and expiry.
const MinShelfLifeDays = 10

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z0-9 ]{4,15}$`)
	descRe  = regexp.MustCompile(`^[A-Za-z0-9 ]{4,20}$`)
	batchRe = regexp.MustCompile(`^([0-9]{3,10}|[0-9]{6}[A-Z]?|[A-Z]{1,2}[0-9]{4,6}[A-Z0-9]?|L[0-9]{2}[A-Z][0-9]{2})$`)
)

// ValidationError carries a message safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	register := func(tag string, re *regexp.Regexp) {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic("registering validation " + tag + ": " + err.Error())
		}
	}
	register("productname", nameRe)
	register("productdesc", descRe)
	register("batchnumber", batchRe)
	return v
}

// ProductForm is a product submission as received from a form, before parsing.
type ProductForm struct {
	Name              string `validate:"required"`
	Description       string `validate:"required"`
	OriginalPrice     string `validate:"required"`
	DiscountPrice     string `validate:"required"`
	CategoryID        string `validate:"required"`
	Quantity          string `validate:"required"`
	ManufacturingDate string `validate:"required"`
	ExpiryDate        string `validate:"required"`
	BatchNumber       string `validate:"required"`
	RackNumber        string `validate:"required"`
	Shape             string `validate:"omitempty,oneof=box cylinder pillow"`
}

// parsedNumbers holds the numeric part of a form once parsed.
type parsedNumbers struct {
	OriginalPrice float64 `validate:"gte=1,lte=1000"`
	DiscountPrice float64 `validate:"gte=1,lte=1000"`
}

func (f *ProductForm) trim() {
	for _, s := range []*string{
		&f.Name, &f.Description, &f.OriginalPrice, &f.DiscountPrice, &f.CategoryID, &f.Quantity,
		&f.ManufacturingDate, &f.ExpiryDate, &f.BatchNumber, &f.RackNumber, &f.Shape,
	} {
		*s = strings.TrimSpace(*s)
	}
}

// Build validates the form and returns a new, unsaved product with a fresh ID.
// The first failing rule is reported as a *ValidationError.
func (f ProductForm) Build(now time.Time) (*Product, error) {
	f.trim()

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Shape" {
			return nil, invalid("Shape must be one of box, cylinder or pillow")
		}
		return nil, invalid("All fields are required")
	}
	if validate.Var(f.Name, "productname") != nil {
		return nil, invalid("Product name must be 4–15 characters long and contain only letters, numbers, and spaces")
	}
	if validate.Var(f.Description, "productdesc") != nil {
		return nil, invalid("Description must be 4–20 characters long and contain only letters, numbers, and spaces")
	}

	original, errO := strconv.ParseFloat(f.OriginalPrice, 64)
	discount, errD := strconv.ParseFloat(f.DiscountPrice, 64)
	if errO != nil || errD != nil || validate.Struct(parsedNumbers{OriginalPrice: original, DiscountPrice: discount}) != nil {
		return nil, invalid("Prices must be numbers between 1 and 1000")
	}
	if discount > original {
		return nil, invalid("Discount price cannot be greater than original price")
	}

	qty, err := strconv.Atoi(f.Quantity)
	if err != nil || validate.Var(qty, "gte=0") != nil {
		return nil, invalid("Quantity must be a valid number (0 or greater)")
	}

	rack, err := strconv.Atoi(f.RackNumber)
	if err != nil || validate.Var(rack, "gte=1,lte=155") != nil {
		return nil, invalid("Rack number must be a number between 1 and 155")
	}

	mfg, errM := parseDate(f.ManufacturingDate)
	exp, errE := parseDate(f.ExpiryDate)
	if errM != nil || errE != nil {
		return nil, invalid("Invalid manufacturing or expiry date")
	}
	if mfg.Equal(exp) {
		return nil, invalid("Manufacturing date and expiry date cannot be the same")
	}
	if exp.Sub(mfg) < MinShelfLifeDays*24*time.Hour {
		return nil, invalid("Expiry date must be at least 10 days after manufacturing date")
	}

	if validate.Var(f.BatchNumber, "batchnumber") != nil {
		return nil, invalid("Invalid batch number format")
	}

	shape := Shape(f.Shape)
	if shape == "" {
		shape = ShapeBox
	}

	p := &Product{
		ID:                NewID(),
		Name:              f.Name,
		Description:       f.Description,
		OriginalPrice:     original,
		DiscountPrice:     discount,
		CategoryID:        f.CategoryID,
		Quantity:          qty,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		BatchNumber:       f.BatchNumber,
		RackNumber:        rack,
		Shape:             shape,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	p.RefreshExpiry(now)
	return p, nil
}

// CheckImageSet enforces the accepted image layouts: a single legacy image, or
// a front and back pair (side, top and bottom optional).
func CheckImageSet(has func(field string) bool) error {
	front, back, single := has(FieldImageFront), has(FieldImageBack), has(FieldImage)
	if (front || back) && !(front && back) {
		return invalid("Front and Back images are required for 3D visualization")
	}
	if !front && !back && !single {
		return invalid("Image is required (either single image or front+back images for 3D)")
	}
	return nil
}

// CheckModelFile accepts .glb and .gltf files for the 3D model field.
func CheckModelFile(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".glb", ".gltf":
		return nil
	default:
		return invalid("Only 3D model files (glb, gltf) are allowed for the 3D model field")
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
