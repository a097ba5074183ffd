package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kozaktomas/product-matcher/internal/constants"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/logger"
	"github.com/kozaktomas/product-matcher/internal/search"
	"github.com/kozaktomas/product-matcher/internal/storage"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for boundaries and part headers on top of the file limit.
const multipartOverhead = 1 << 20

// SearchHandler handles visual product search.
type SearchHandler struct {
	store *storage.Store
	opts  search.Options
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(store *storage.Store, opts search.Options) *SearchHandler {
	return &SearchHandler{store: store, opts: opts}
}

// SearchImage handles a multipart photo upload in the "image" field and returns
// the matching products.
func (h *SearchHandler) SearchImage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	const limit = constants.MaxUploadSize + multipartOverhead
	if r.ContentLength > limit {
		respondMessage(w, http.StatusBadRequest, "Image must be 10MB or smaller")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		if isTooLarge(err) {
			respondMessage(w, http.StatusBadRequest, "Image must be 10MB or smaller")
			return
		}
		respondMessage(w, http.StatusBadRequest, "Please upload an image")
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload := uploadFromForm(r.MultipartForm, constants.SearchImageField)
	if upload == nil {
		respondMessage(w, http.StatusBadRequest, "Please upload an image")
		return
	}
	if upload.Size > constants.MaxUploadSize {
		respondMessage(w, http.StatusBadRequest, "Image must be 10MB or smaller")
		return
	}

	products, err := database.GetProductReader(r.Context())
	if err != nil {
		respondInternal(w, r, "catalog unavailable", err)
		return
	}
	svc, err := search.NewService(products, h.store, h.opts, log)
	if err != nil {
		respondInternal(w, r, "search misconfigured", err)
		return
	}

	results, err := svc.SearchByImage(r.Context(), upload)
	if err != nil {
		var reqErr *search.RequestError
		if errors.As(err, &reqErr) {
			log.Info("search rejected",
				zap.String("filename", sanitizeForLog(uploadName(upload))),
				zap.String("reason", reqErr.Message))
			respondMessage(w, http.StatusBadRequest, reqErr.Message)
			return
		}
		respondInternal(w, r, "search failed", err)
		return
	}

	log.Info("search completed",
		zap.String("filename", sanitizeForLog(uploadName(upload))),
		zap.Int("results", len(results)))
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": results,
	})
}

// uploadFromForm returns the first file in field, or nil when there is none.
func uploadFromForm(form *multipart.Form, field string) *search.Upload {
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	fh := form.File[field][0]
	return &search.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func uploadName(u *search.Upload) string {
	if u == nil {
		return ""
	}
	return u.Filename
}
