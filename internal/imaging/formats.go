package imaging

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format is an image encoding accepted for product photos.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
)

var extensionFormats = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
}

var contentTypeFormats = map[string]Format{
	"image/jpeg":  FormatJPEG,
	"image/jpg":   FormatJPEG,
	"image/pjpeg": FormatJPEG,
	"image/png":   FormatPNG,
	"image/gif":   FormatGIF,
}

// FormatFromFilename returns the format implied by the file extension.
func FormatFromFilename(name string) (Format, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(name))]
	return f, ok
}

// FormatFromContentType returns the format for a declared MIME type.
// Parameters such as charset are ignored.
func FormatFromContentType(contentType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	f, ok := contentTypeFormats[strings.ToLower(mediaType)]
	return f, ok
}

// CheckFormat validates the declared format of an upload before any bytes are
// decoded. The extension must be a supported one; a declared content type, when
// present and specific, must be supported as well. WEBP fails both checks.
func CheckFormat(filename, contentType string) error {
	if _, ok := FormatFromFilename(filename); !ok {
		return ErrUnsupportedFormat
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return nil
	}
	if _, ok := FormatFromContentType(contentType); !ok {
		return ErrUnsupportedFormat
	}
	return nil
}

// Extension returns the canonical file extension for a supported filename,
// used when naming stored copies.
func Extension(filename string) string {
	switch f, _ := FormatFromFilename(filename); f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	default:
		return ""
	}
}
