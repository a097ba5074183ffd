package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/constants"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/imaging"
	"github.com/kozaktomas/product-matcher/internal/logger"
	"github.com/kozaktomas/product-matcher/internal/storage"
	"go.uber.org/zap"
)

const msgProductNotFound = "Product not found"

// ProductsHandler handles catalog product endpoints.
type ProductsHandler struct {
	store *storage.Store
	now   func() time.Time
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(store *storage.Store) *ProductsHandler {
	return &ProductsHandler{store: store, now: time.Now}
}

// List returns active products, newest first. The optional q parameter filters
// by name ignoring case and diacritics.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetProductReader(r.Context())
	if err != nil {
		respondInternal(w, r, "catalog unavailable", err)
		return
	}

	products, err := reader.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, "listing products failed", err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		filtered := make([]catalog.Product, 0, len(products))
		for _, p := range products {
			if catalog.NameMatches(p.Name, q) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(products),
		"products": products,
	})
}

// Get returns a single product.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetProductReader(r.Context())
	if err != nil {
		respondInternal(w, r, "catalog unavailable", err)
		return
	}

	product, err := reader.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		respondMessage(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	if err != nil {
		respondInternal(w, r, "getting product failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "product": product})
}

// Create validates a multipart product submission, stores its files and inserts
// the product. Stored files are removed again when the insert fails.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	writer, err := database.GetProductWriter(r.Context())
	if errors.Is(err, database.ErrReadOnly) {
		respondError(w, http.StatusMethodNotAllowed, err.Error())
		return
	}
	if err != nil {
		respondInternal(w, r, "catalog unavailable", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxProductUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		if isTooLarge(err) {
			respondMessage(w, http.StatusBadRequest, "Uploaded files are too large")
			return
		}
		respondMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	defer r.MultipartForm.RemoveAll()
	form := r.MultipartForm

	if msg := checkProductFiles(form); msg != "" {
		respondMessage(w, http.StatusBadRequest, msg)
		return
	}

	product, err := productFormFrom(r).Build(h.now())
	if err != nil {
		var ve *catalog.ValidationError
		if errors.As(err, &ve) {
			respondMessage(w, http.StatusBadRequest, ve.Message)
			return
		}
		respondInternal(w, r, "building product failed", err)
		return
	}
	if err := catalog.CheckImageSet(func(field string) bool { return len(form.File[field]) > 0 }); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.storeFiles(form, product)
	if err != nil {
		h.removeFiles(r, stored)
		respondInternal(w, r, "storing product files failed", err)
		return
	}

	if err := writer.Create(r.Context(), product); err != nil {
		h.removeFiles(r, stored)
		if errors.Is(err, database.ErrDuplicate) {
			respondMessage(w, http.StatusBadRequest, "Product already uploaded. You can edit it instead.")
			return
		}
		respondInternal(w, r, "creating product failed", err)
		return
	}

	log.Info("product created", zap.String("product_id", product.ID), zap.Int("files", len(stored)))
	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Product added successfully",
		"product": product,
	})
}

// Update patches the fields present in a form submission and replaces the files
// uploaded with it. Replaced files are removed once the update is stored; new
// files are removed again when it is not.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	writer, err := database.GetProductWriter(r.Context())
	if errors.Is(err, database.ErrReadOnly) {
		respondError(w, http.StatusMethodNotAllowed, err.Error())
		return
	}
	if err != nil {
		respondInternal(w, r, "catalog unavailable", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxProductUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isTooLarge(err) {
			respondMessage(w, http.StatusBadRequest, "Uploaded files are too large")
			return
		}
		respondMessage(w, http.StatusBadRequest, "Invalid product update")
		return
	}
	form := r.MultipartForm
	if form == nil {
		form = &multipart.Form{}
	}
	defer form.RemoveAll()

	product, err := writer.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		respondMessage(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	if err != nil {
		respondInternal(w, r, "getting product failed", err)
		return
	}

	if msg := checkProductFiles(form); msg != "" {
		respondMessage(w, http.StatusBadRequest, msg)
		return
	}
	if err := productPatchFrom(r).Apply(product, h.now()); err != nil {
		var ve *catalog.ValidationError
		if errors.As(err, &ve) {
			respondMessage(w, http.StatusBadRequest, ve.Message)
			return
		}
		respondInternal(w, r, "patching product failed", err)
		return
	}

	var replaced []string
	for _, field := range catalog.FileFields {
		if old := product.File(field); old != "" && len(form.File[field]) > 0 {
			replaced = append(replaced, old)
		}
	}

	stored, err := h.storeFiles(form, product)
	if err != nil {
		h.removeFiles(r, stored)
		respondInternal(w, r, "storing product files failed", err)
		return
	}

	if err := writer.Update(r.Context(), product); err != nil {
		h.removeFiles(r, stored)
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondMessage(w, http.StatusNotFound, msgProductNotFound)
		case errors.Is(err, database.ErrDuplicate):
			respondMessage(w, http.StatusBadRequest, "Another product with the same details already exists")
		default:
			respondInternal(w, r, "updating product failed", err)
		}
		return
	}

	h.removeFiles(r, replaced)
	log.Info("product updated",
		zap.String("product_id", product.ID),
		zap.Int("files_stored", len(stored)),
		zap.Int("files_replaced", len(replaced)))
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Product updated successfully",
		"product": product,
	})
}

// Delete removes a product and every file it references.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	writer, err := database.GetProductWriter(r.Context())
	if errors.Is(err, database.ErrReadOnly) {
		respondError(w, http.StatusMethodNotAllowed, err.Error())
		return
	}
	if err != nil {
		respondInternal(w, r, "catalog unavailable", err)
		return
	}

	product, err := writer.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		respondMessage(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	if err != nil {
		respondInternal(w, r, "deleting product failed", err)
		return
	}

	h.removeFiles(r, product.Files())
	logger.FromContext(r.Context()).Info("product deleted", zap.String("product_id", product.ID))
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product deleted successfully"})
}

func productFormFrom(r *http.Request) catalog.ProductForm {
	return catalog.ProductForm{
		Name:              r.FormValue("name"),
		Description:       r.FormValue("description"),
		OriginalPrice:     r.FormValue("originalPrice"),
		DiscountPrice:     r.FormValue("discountPrice"),
		CategoryID:        r.FormValue("category"),
		Quantity:          r.FormValue("quantity"),
		ManufacturingDate: r.FormValue("manufacturingDate"),
		ExpiryDate:        r.FormValue("expiryDate"),
		BatchNumber:       r.FormValue("batchNumber"),
		RackNumber:        r.FormValue("rackNumber"),
		Shape:             r.FormValue("shape"),
	}
}

func productPatchFrom(r *http.Request) catalog.ProductPatch {
	return catalog.ProductPatch{
		Name:          r.FormValue("name"),
		Description:   r.FormValue("description"),
		OriginalPrice: r.FormValue("originalPrice"),
		DiscountPrice: r.FormValue("discountPrice"),
		CategoryID:    r.FormValue("category"),
		Quantity:      r.FormValue("quantity"),
		Shape:         r.FormValue("shape"),
	}
}

// checkProductFiles rejects files of the wrong kind before anything is stored.
func checkProductFiles(form *multipart.Form) string {
	for _, field := range catalog.ImageFields {
		for _, fh := range form.File[field] {
			if imaging.CheckFormat(fh.Filename, fh.Header.Get("Content-Type")) != nil {
				return "Only image files (jpeg, jpg, png, gif) are allowed for product images"
			}
		}
	}
	for _, fh := range form.File[catalog.FieldModel3D] {
		if err := catalog.CheckModelFile(fh.Filename); err != nil {
			return err.Error()
		}
	}
	return ""
}

// storeFiles saves the first file of every known field and records its reference
// on the product. It returns every reference stored so far, also on error.
func (h *ProductsHandler) storeFiles(form *multipart.Form, product *catalog.Product) ([]string, error) {
	var stored []string
	for _, field := range catalog.FileFields {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}
		ref, err := h.saveFile(files[0], field)
		if err != nil {
			return stored, err
		}
		stored = append(stored, ref)
		product.SetFile(field, ref)
	}
	return stored, nil
}

func (h *ProductsHandler) saveFile(fh *multipart.FileHeader, field string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	ext := imaging.Extension(fh.Filename)
	if field == catalog.FieldModel3D {
		ext = modelExtension(fh.Filename)
	}
	return h.store.SaveUpload(f, ext)
}

func (h *ProductsHandler) removeFiles(r *http.Request, refs []string) {
	for _, ref := range refs {
		if err := h.store.Remove(ref); err != nil {
			logger.FromContext(r.Context()).Warn("failed to remove product file", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func modelExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
