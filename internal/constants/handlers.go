// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (10MB)
	MaxUploadSize = 10 << 20

	// MaxProductUploadSize caps a product creation form with all of its images (60MB)
	MaxProductUploadSize = 60 << 20
)

// Form field names
const (
	// SearchImageField is the multipart field carrying the query photo
	SearchImageField = "image"
)
