package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/database/mock"
	"github.com/kozaktomas/product-matcher/internal/storage"
)

// newTestStore creates a file store rooted in a fresh temp directory
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(config.StorageConfig{Root: t.TempDir(), UploadsDir: "uploads", TempDir: "tmp"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// setupMockCatalog registers an in-memory product store as the active backend.
// Cleanup deregisters it. A read-only backend registers no writer.
func setupMockCatalog(t *testing.T, readOnly bool) *mock.MockProductStore {
	t.Helper()
	products := mock.NewMockProductStore()
	writer := func() database.ProductWriter { return products }
	if readOnly {
		writer = nil
	}
	database.RegisterProductBackend("mock", func() database.ProductReader { return products }, writer)
	t.Cleanup(database.ResetForTesting)
	return products
}

// greyPNG encodes a flat 64x64 image; patch shifts the top-left quadrant
func greyPNG(t *testing.T, base uint8, patch int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			v := int(base)
			if x < 32 && y < 32 {
				v += patch
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// writeUpload stores data in the uploads directory and returns its reference
func writeUpload(t *testing.T, store *storage.Store, name string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(store.UploadsPath(), name), data, 0o600); err != nil {
		t.Fatalf("failed to write upload: %v", err)
	}
	return "/uploads/" + name
}

// formFile is one file part of a multipart request
type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// newMultipartRequest builds a multipart POST with the given fields and files
func newMultipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		contentType := f.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

// assertJSONMessage checks if the response is a JSON rejection with the expected message
func assertJSONMessage(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["message"] != expectedMessage {
		t.Errorf("expected message '%s', got '%v'", expectedMessage, result["message"])
	}
}
