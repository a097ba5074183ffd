package search

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedMediaType is returned when no image was uploaded or its declared format is not accepted.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrInvalidImage is returned when the uploaded bytes cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
	// ErrCatalogList is returned when the product catalog cannot be listed.
	ErrCatalogList = errors.New("listing catalog products")
)

// RequestError is a rejected search request. Message is safe to show to the client.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Kind }

func errNoImage() error {
	return &RequestError{Kind: ErrUnsupportedMediaType, Message: "Please upload an image"}
}

func errUnsupported(u *Upload) error {
	if strings.EqualFold(filepath.Ext(u.Filename), ".webp") || strings.HasPrefix(strings.ToLower(u.ContentType), "image/webp") {
		return &RequestError{
			Kind:    ErrUnsupportedMediaType,
			Message: "WebP images are not supported for search. Please use JPG, JPEG, or PNG.",
		}
	}
	return &RequestError{
		Kind:    ErrUnsupportedMediaType,
		Message: "Only image files (jpeg, jpg, png, gif) are allowed",
	}
}

func errInvalid() error {
	return &RequestError{Kind: ErrInvalidImage, Message: "Invalid image file or unsupported format"}
}
