// Package matcher scores normalized product photos against each other and
// ranks catalog candidates. It does no I/O; callers hand it rasters produced
// by imaging.Normalize.
package matcher

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/kozaktomas/product-matcher/internal/constants"
)

// ErrSizeMismatch is returned when two rasters do not have the same dimensions.
var ErrSizeMismatch = errors.New("image sizes differ")

// Params are the empirical knobs of the search. They come from configuration.
type Params struct {
	// ExactThreshold: scores below it mean "same product photographed again".
	ExactThreshold float64
	// MaxScore: candidates scoring at or above it are dropped.
	MaxScore float64
	// Tolerance is the normalized per-pixel difference ignored by DiffPercentage.
	Tolerance float64
}

// DefaultParams returns the thresholds the search has always used.
func DefaultParams() Params {
	return Params{
		ExactThreshold: constants.DefaultExactThreshold,
		MaxScore:       constants.DefaultMaxScore,
		Tolerance:      constants.DefaultPixelTolerance,
	}
}

// Validate rejects parameter combinations that cannot produce a sensible ranking.
func (p Params) Validate() error {
	if p.ExactThreshold < 0 || p.MaxScore < 0 {
		return errors.New("thresholds must not be negative")
	}
	if p.ExactThreshold > p.MaxScore {
		return fmt.Errorf("exact threshold %.3f exceeds max score %.3f", p.ExactThreshold, p.MaxScore)
	}
	if p.Tolerance < 0 || p.Tolerance > 1 {
		return fmt.Errorf("tolerance %.3f outside [0,1]", p.Tolerance)
	}
	return nil
}

// Candidate is a catalog product with its normalized image.
type Candidate struct {
	ProductID string
	Image     *image.Gray
}

// Result pairs a product with its similarity score. Lower is more similar.
type Result struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	Exact     bool    `json:"exact"`
}

// PixelDistance is the root mean square of per-pixel differences, each scaled
// to [0,1]. The result is in [0,1].
func PixelDistance(a, b *image.Gray) (float64, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return 0, ErrSizeMismatch
	}
	var sum float64
	n := 0
	forEachPair(a, b, func(pa, pb uint8) {
		d := (float64(pa) - float64(pb)) / 255
		sum += d * d
		n++
	})
	if n == 0 {
		return 0, nil
	}
	return math.Sqrt(sum / float64(n)), nil
}

// DiffPercentage is the fraction of pixels whose normalized difference exceeds tolerance.
func DiffPercentage(a, b *image.Gray, tolerance float64) (float64, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return 0, ErrSizeMismatch
	}
	differing, n := 0, 0
	forEachPair(a, b, func(pa, pb uint8) {
		if math.Abs(float64(pa)-float64(pb))/255 > tolerance {
			differing++
		}
		n++
	})
	if n == 0 {
		return 0, nil
	}
	return float64(differing) / float64(n), nil
}

// Score sums PixelDistance and DiffPercentage. Identical rasters score 0.
func Score(a, b *image.Gray, tolerance float64) (float64, error) {
	dist, err := PixelDistance(a, b)
	if err != nil {
		return 0, err
	}
	diff, err := DiffPercentage(a, b, tolerance)
	if err != nil {
		return 0, err
	}
	return dist + diff, nil
}

// Match scores every candidate against query and ranks them with Rank.
// Candidates whose raster size differs from the query are skipped.
func Match(query *image.Gray, candidates []Candidate, p Params) []Result {
	scored := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		s, err := Score(query, c.Image, p.Tolerance)
		if err != nil {
			continue
		}
		scored = append(scored, Result{ProductID: c.ProductID, Score: s})
	}
	return Rank(scored, p)
}

// Rank drops results scoring at or above MaxScore and sorts the rest ascending
// (ties broken by product ID). If any result is below ExactThreshold, only those
// exact matches are returned; otherwise every survivor is. The input order does
// not affect the output.
func Rank(scored []Result, p Params) []Result {
	kept := make([]Result, 0, len(scored))
	for _, r := range scored {
		if r.Score < p.MaxScore {
			r.Exact = r.Score < p.ExactThreshold
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score < kept[j].Score
		}
		return kept[i].ProductID < kept[j].ProductID
	})

	exact := 0
	for exact < len(kept) && kept[exact].Exact {
		exact++
	}
	if exact > 0 {
		return kept[:exact]
	}
	return kept
}

func forEachPair(a, b *image.Gray, fn func(pa, pb uint8)) {
	ab, bb := a.Bounds(), b.Bounds()
	for y := range ab.Dy() {
		for x := range ab.Dx() {
			fn(a.GrayAt(ab.Min.X+x, ab.Min.Y+y).Y, b.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y)
		}
	}
}
