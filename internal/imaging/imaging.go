// Package imaging decodes product photos and reduces them to the small
// greyscale rasters used for perceptual comparison.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

var (
	// ErrUnsupportedFormat is returned when the declared format is not JPEG, PNG or GIF.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode is returned when the bytes cannot be decoded as a supported image.
	ErrDecode = errors.New("cannot decode image")
)

// MaxPixels bounds the decoded size of a single image (width*height).
const MaxPixels = 50_000_000

// Decode decodes JPEG, PNG or GIF bytes. Any failure, including a known
// extension carrying an unregistered encoding such as WEBP, wraps ErrDecode.
func Decode(data []byte) (image.Image, Format, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, "", fmt.Errorf("%w: dimensions %dx%d out of range", ErrDecode, cfg.Width, cfg.Height)
	}

	format := Format(name)
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF:
	default:
		return nil, "", fmt.Errorf("%w: format %q", ErrDecode, name)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, format, nil
}

// Normalize stretches img to size x size, ignoring the source aspect ratio,
// and converts it to 8-bit greyscale.
func Normalize(img image.Image, size int) *image.Gray {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)
	return toGrayscale(resized)
}

// LoadNormalized reads, decodes and normalizes the image stored at path.
func LoadNormalized(path string, size int) (*image.Gray, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path resolved by storage.Store
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Normalize(img, size), nil
}

// toGrayscale converts an RGBA raster to single-channel luminance.
func toGrayscale(img *image.RGBA) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			gray.Pix[gray.PixOffset(x, y)] = uint8(math.Min(255, math.Round(luma)))
		}
	}
	return gray
}
