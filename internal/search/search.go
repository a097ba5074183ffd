// Package search answers "which catalog products look like this photo".
// It owns the temporary copy of the uploaded photo and the loading of catalog
// images; scoring and ranking live in the matcher package.
package search

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/constants"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/imaging"
	"github.com/kozaktomas/product-matcher/internal/matcher"
	"github.com/kozaktomas/product-matcher/internal/storage"
	"go.uber.org/zap"
)

// Upload is the photo submitted by a user.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Options tune the search.
type Options struct {
	Params  matcher.Params
	Workers int // concurrent candidate loaders, 1 is sequential
}

// OptionsFromConfig converts the matcher section of the configuration.
func OptionsFromConfig(cfg config.MatcherConfig) Options {
	return Options{
		Params: matcher.Params{
			ExactThreshold: cfg.ExactThreshold,
			MaxScore:       cfg.MaxScore,
			Tolerance:      cfg.Tolerance,
		},
		Workers: cfg.Workers,
	}
}

// Match is a ranked product with its score.
type Match struct {
	Product catalog.Product `json:"product"`
	Score   float64         `json:"score"`
	Exact   bool            `json:"exact"`
}

// Service runs image searches against the catalog.
type Service struct {
	products database.ProductReader
	store    *storage.Store
	opts     Options
	log      *zap.Logger
}

// NewService creates a search service. Zero Workers falls back to the default.
func NewService(products database.ProductReader, store *storage.Store, opts Options, log *zap.Logger) (*Service, error) {
	if products == nil || store == nil {
		return nil, errors.New("search needs a product reader and a file store")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher parameters: %w", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = constants.DefaultMatchWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{products: products, store: store, opts: opts, log: log}, nil
}

// SearchByImage returns the products whose primary image resembles the upload,
// most similar first. When any product is an exact match only exact matches
// are returned.
func (s *Service) SearchByImage(ctx context.Context, u *Upload) ([]catalog.Product, error) {
	matches, err := s.Search(ctx, u)
	if err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(matches))
	for i, m := range matches {
		products[i] = m.Product
	}
	return products, nil
}

// Search is SearchByImage with scores attached.
func (s *Service) Search(ctx context.Context, u *Upload) ([]Match, error) {
	if u == nil || u.Open == nil || u.Filename == "" {
		return nil, errNoImage()
	}
	if err := imaging.CheckFormat(u.Filename, u.ContentType); err != nil {
		return nil, errUnsupported(u)
	}

	tmp, err := s.park(u)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tmp.Release(); err != nil {
			s.log.Warn("failed to remove query image", zap.String("path", tmp.Path), zap.Error(err))
		}
	}()

	data, err := os.ReadFile(tmp.Path)
	if err != nil {
		return nil, fmt.Errorf("reading query image: %w", err)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		s.log.Debug("query image rejected", zap.String("filename", u.Filename), zap.Int64("size", u.Size), zap.Error(err))
		return nil, errInvalid()
	}
	query := imaging.Normalize(img, constants.NormalizedSize)

	products, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogList, err)
	}

	scored, err := s.scoreCatalog(ctx, query, products)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	ranked := matcher.Rank(scored, s.opts.Params)
	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		matches = append(matches, Match{Product: *byID[r.ProductID], Score: r.Score, Exact: r.Exact})
	}
	return matches, nil
}

// park copies the upload into temp storage.
func (s *Service) park(u *Upload) (*storage.TempFile, error) {
	r, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer r.Close()

	tmp, err := s.store.SaveTemp(r, imaging.Extension(u.Filename))
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	return tmp, nil
}

// scoreCatalog loads every product's primary image and scores it against
// query on a bounded pool. Products without a readable image are skipped.
func (s *Service) scoreCatalog(ctx context.Context, query *image.Gray, products []catalog.Product) ([]matcher.Result, error) {
	var mu sync.Mutex
	scored := make([]matcher.Result, 0, len(products))

	err := forEachBounded(ctx, len(products), s.opts.Workers, func(i int) {
		if ctx.Err() != nil {
			return
		}
		p := &products[i]
		ref := p.PrimaryImage()
		if ref == "" {
			return
		}
		score, ok := s.scoreProduct(query, p, ref)
		if !ok {
			return
		}
		mu.Lock()
		scored = append(scored, matcher.Result{ProductID: p.ID, Score: score})
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	return scored, nil
}

func (s *Service) scoreProduct(query *image.Gray, p *catalog.Product, ref string) (float64, bool) {
	if !s.store.Exists(ref) {
		s.log.Debug("catalog image missing", zap.String("product_id", p.ID), zap.String("image", ref))
		return 0, false
	}
	path, err := s.store.Resolve(ref)
	if err != nil {
		s.log.Warn("candidate read failure", zap.String("product_id", p.ID), zap.String("image", ref), zap.Error(err))
		return 0, false
	}
	candidate, err := imaging.LoadNormalized(path, constants.NormalizedSize)
	if err != nil {
		s.log.Warn("candidate read failure", zap.String("product_id", p.ID), zap.String("image", ref), zap.Error(err))
		return 0, false
	}
	score, err := matcher.Score(query, candidate, s.opts.Params.Tolerance)
	if err != nil {
		s.log.Warn("candidate read failure", zap.String("product_id", p.ID), zap.Error(err))
		return 0, false
	}
	return score, true
}
