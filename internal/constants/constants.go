// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Image search constants. These are fallbacks used when configuration does not
// provide a value; runtime code reads config.MatcherConfig.
const (
	// NormalizedSize is the width and height of the greyscale comparison raster
	NormalizedSize = 64

	// DefaultExactThreshold is the score below which a candidate is treated as
	// the same physical product photographed again
	DefaultExactThreshold = 0.15

	// DefaultMaxScore is the score at or above which a candidate is not reported
	DefaultMaxScore = 0.5

	// DefaultPixelTolerance is the normalized per-pixel difference a pixel may
	// have before it counts towards the diff percentage
	DefaultPixelTolerance = 0.1
)

// Processing constants
const (
	// DefaultMatchWorkers is the default number of parallel candidate loaders
	DefaultMatchWorkers = 4

	// DefaultVerifyConcurrency is the default number of workers for catalog verification
	DefaultVerifyConcurrency = 8
)
