package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSplitImage paints the left half black and the right half white.
func createSplitImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			if x < width/2 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func encodeGIF(img image.Image) []byte {
	var buf bytes.Buffer
	gif.Encode(&buf, img, nil)
	return buf.Bytes()
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		wantErr     bool
	}{
		{"jpeg", "photo.jpg", "image/jpeg", false},
		{"jpeg long extension", "photo.JPEG", "image/jpeg", false},
		{"png", "photo.png", "image/png", false},
		{"gif", "photo.gif", "image/gif", false},
		{"no content type", "photo.png", "", false},
		{"octet stream", "photo.png", "application/octet-stream", false},
		{"content type with params", "photo.jpg", "image/jpeg; charset=binary", false},
		{"webp", "photo.webp", "image/webp", true},
		{"webp mime on jpg name", "photo.jpg", "image/webp", true},
		{"webp name with jpeg mime", "photo.webp", "image/jpeg", true},
		{"bmp", "photo.bmp", "image/bmp", true},
		{"no extension", "photo", "image/jpeg", true},
		{"text", "notes.txt", "text/plain", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckFormat(tc.filename, tc.contentType)
			if tc.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("CheckFormat(%q, %q) = %v; want ErrUnsupportedFormat", tc.filename, tc.contentType, err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("CheckFormat(%q, %q) = %v; want nil", tc.filename, tc.contentType, err)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"a.JPEG": ".jpg",
		"a.jpg":  ".jpg",
		"a.png":  ".png",
		"a.gif":  ".gif",
		"a.webp": "",
	}
	for name, want := range tests {
		if got := Extension(name); got != want {
			t.Errorf("Extension(%q) = %q; want %q", name, got, want)
		}
	}
}

func TestDecode_SupportedFormats(t *testing.T) {
	img := createTestImage(20, 10, color.White)

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"jpeg", encodeJPEG(img), FormatJPEG},
		{"png", encodePNG(img), FormatPNG},
		{"gif", encodeGIF(img), FormatGIF},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decoded, format, err := Decode(tc.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if format != tc.format {
				t.Errorf("expected format %s, got %s", tc.format, format)
			}
			if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 10 {
				t.Errorf("unexpected bounds %v", decoded.Bounds())
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("definitely not an image")},
		{"empty", nil},
		{"webp header", []byte("RIFF\x24\x00\x00\x00WEBPVP8 \x18\x00\x00\x00")},
		{"truncated jpeg", encodeJPEG(createTestImage(50, 50, color.Black))[:40]},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(tc.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestNormalize_FixedSize(t *testing.T) {
	for _, dims := range [][2]int{{200, 100}, {100, 200}, {64, 64}, {3, 5}, {1000, 10}} {
		img := createTestImage(dims[0], dims[1], color.RGBA{200, 10, 10, 255})
		gray := Normalize(img, 64)

		if gray.Bounds().Dx() != 64 || gray.Bounds().Dy() != 64 {
			t.Errorf("Normalize(%dx%d) bounds = %v; want 64x64", dims[0], dims[1], gray.Bounds())
		}
		if len(gray.Pix) != 64*64 {
			t.Errorf("expected one byte per pixel, got %d bytes", len(gray.Pix))
		}
	}
}

func TestNormalize_Luminance(t *testing.T) {
	white := Normalize(createTestImage(10, 10, color.White), 8)
	black := Normalize(createTestImage(10, 10, color.Black), 8)

	for i := range white.Pix {
		if white.Pix[i] < 254 {
			t.Fatalf("white pixel %d = %d; want 255", i, white.Pix[i])
		}
		if black.Pix[i] > 1 {
			t.Fatalf("black pixel %d = %d; want 0", i, black.Pix[i])
		}
	}

	red := Normalize(createTestImage(10, 10, color.RGBA{255, 0, 0, 255}), 8)
	if red.Pix[0] < 75 || red.Pix[0] > 77 {
		t.Errorf("red luma = %d; want 76", red.Pix[0])
	}
}

func TestNormalize_StretchIgnoresAspectRatio(t *testing.T) {
	wide := Normalize(createSplitImage(200, 100), 64)
	tall := Normalize(createSplitImage(100, 200), 64)

	// Away from the boundary column both rasters are the same stretched content.
	for y := range 64 {
		for _, x := range []int{0, 10, 29, 34, 50, 63} {
			if absDiff(wide.GrayAt(x, y).Y, tall.GrayAt(x, y).Y) > 1 {
				t.Fatalf("pixel (%d,%d) differs: wide=%d tall=%d", x, y, wide.GrayAt(x, y).Y, tall.GrayAt(x, y).Y)
			}
		}
	}
	if wide.GrayAt(0, 0).Y > 1 || wide.GrayAt(63, 63).Y < 254 {
		t.Errorf("stretched content lost: left=%d right=%d", wide.GrayAt(0, 0).Y, wide.GrayAt(63, 63).Y)
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestLoadNormalized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.png")
	if err := os.WriteFile(path, encodePNG(createTestImage(30, 30, color.White)), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}

	gray, err := LoadNormalized(path, 64)
	if err != nil {
		t.Fatalf("LoadNormalized failed: %v", err)
	}
	if gray.Bounds().Dx() != 64 {
		t.Errorf("expected width 64, got %d", gray.Bounds().Dx())
	}

	if _, err := LoadNormalized(filepath.Join(dir, "missing.png"), 64); err == nil {
		t.Error("expected error for missing file")
	}

	corrupt := filepath.Join(dir, "corrupt.jpg")
	os.WriteFile(corrupt, []byte("garbage"), 0o644)
	if _, err := LoadNormalized(corrupt, 64); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for corrupt file, got %v", err)
	}
}
