package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/matcher"
	"github.com/kozaktomas/product-matcher/internal/search"
	"github.com/kozaktomas/product-matcher/internal/storage"
)

func newSearchHandler(store *storage.Store) *SearchHandler {
	return NewSearchHandler(store, search.Options{Params: matcher.DefaultParams(), Workers: 2})
}

type searchResponse struct {
	Success  bool              `json:"success"`
	Products []catalog.Product `json:"products"`
}

func assertTempEmpty(t *testing.T, store *storage.Store) {
	t.Helper()
	entries, err := os.ReadDir(store.TempPath())
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no temp files, found %d", len(entries))
	}
}

func TestSearchHandler_SearchImage_ExactMatch(t *testing.T) {
	products := setupMockCatalog(t, false)
	store := newTestStore(t)
	query := greyPNG(t, 128, 0)

	now := time.Now()
	products.AddProduct(catalog.Product{ID: "dup", Name: "Duplicate", Image: writeUpload(t, store, "dup.png", query), CreatedAt: now})
	products.AddProduct(catalog.Product{ID: "near", Name: "Near", ImageFront: writeUpload(t, store, "near.png", greyPNG(t, 128, 40)), CreatedAt: now})
	products.AddProduct(catalog.Product{ID: "far", Name: "Far", Image: writeUpload(t, store, "far.png", greyPNG(t, 0, 0)), CreatedAt: now})

	req := newMultipartRequest(t, "/search-image", nil, formFile{field: "image", filename: "photo.png", contentType: "image/png", data: query})
	recorder := httptest.NewRecorder()

	newSearchHandler(store).SearchImage(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp searchResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success {
		t.Error("expected success true")
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "dup" {
		t.Errorf("expected only the duplicate product, got %+v", resp.Products)
	}
	assertTempEmpty(t, store)
}

func TestSearchHandler_SearchImage_EmptyCatalog(t *testing.T) {
	setupMockCatalog(t, false)
	store := newTestStore(t)

	req := newMultipartRequest(t, "/search-image", nil, formFile{field: "image", filename: "photo.png", data: greyPNG(t, 128, 0)})
	recorder := httptest.NewRecorder()

	newSearchHandler(store).SearchImage(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if !bytes.Contains(recorder.Body.Bytes(), []byte(`"products":[]`)) {
		t.Errorf("expected empty products array, got %s", recorder.Body.String())
	}
}

func TestSearchHandler_SearchImage_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		files   []formFile
		message string
	}{
		{
			name:    "missing image field",
			files:   []formFile{{field: "photo", filename: "photo.png", data: []byte("x")}},
			message: "Please upload an image",
		},
		{
			name:    "webp upload",
			files:   []formFile{{field: "image", filename: "photo.webp", contentType: "image/webp", data: []byte("RIFF\x00\x00\x00\x00WEBP")}},
			message: "WebP images are not supported for search. Please use JPG, JPEG, or PNG.",
		},
		{
			name:    "corrupt jpeg",
			files:   []formFile{{field: "image", filename: "photo.jpg", contentType: "image/jpeg", data: []byte{0xFF, 0xD8, 0xFF}}},
			message: "Invalid image file or unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupMockCatalog(t, false)
			store := newTestStore(t)

			req := newMultipartRequest(t, "/search-image", nil, tt.files...)
			recorder := httptest.NewRecorder()

			newSearchHandler(store).SearchImage(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONMessage(t, recorder, tt.message)
			assertTempEmpty(t, store)
		})
	}
}

func TestSearchHandler_SearchImage_NotMultipart(t *testing.T) {
	setupMockCatalog(t, false)
	req := httptest.NewRequest(http.MethodPost, "/search-image", bytes.NewBufferString(`{"image":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	newSearchHandler(newTestStore(t)).SearchImage(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONMessage(t, recorder, "Please upload an image")
}

func TestSearchHandler_SearchImage_NoFileWithoutBackend(t *testing.T) {
	database.ResetForTesting()
	store := newTestStore(t)

	req := newMultipartRequest(t, "/search-image", map[string]string{"note": "no photo"})
	recorder := httptest.NewRecorder()

	newSearchHandler(store).SearchImage(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONMessage(t, recorder, "Please upload an image")
}

func TestSearchHandler_SearchImage_TooLarge(t *testing.T) {
	setupMockCatalog(t, false)
	store := newTestStore(t)
	big := make([]byte, 12<<20)

	req := newMultipartRequest(t, "/search-image", nil, formFile{field: "image", filename: "photo.png", data: big})
	recorder := httptest.NewRecorder()

	newSearchHandler(store).SearchImage(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONMessage(t, recorder, "Image must be 10MB or smaller")
	assertTempEmpty(t, store)
}

func TestSearchHandler_SearchImage_CatalogFailure(t *testing.T) {
	products := setupMockCatalog(t, false)
	products.ListError = errors.New("connection reset")
	store := newTestStore(t)

	req := newMultipartRequest(t, "/search-image", nil, formFile{field: "image", filename: "photo.png", data: greyPNG(t, 128, 0)})
	recorder := httptest.NewRecorder()

	newSearchHandler(store).SearchImage(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "listing catalog products: connection reset")
	assertTempEmpty(t, store)
}
