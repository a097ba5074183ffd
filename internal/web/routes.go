package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/product-matcher/internal/search"
	"github.com/kozaktomas/product-matcher/internal/web/handlers"
	"github.com/kozaktomas/product-matcher/internal/web/middleware"
)

func (s *Server) setupRoutes(opts search.Options) {
	// Create handlers
	searchHandler := handlers.NewSearchHandler(s.store, opts)
	productsHandler := handlers.NewProductsHandler(s.store)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Visual search, also under its historical path
	s.router.Post("/search-image", searchHandler.SearchImage)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/products/search-image", searchHandler.SearchImage)

		r.Get("/products", productsHandler.List)
		r.Post("/products", productsHandler.Create)
		r.Get("/products/{id}", productsHandler.Get)
		r.Put("/products/{id}", productsHandler.Update)
		r.Delete("/products/{id}", productsHandler.Delete)
	})

	// Stored product files
	s.router.With(middleware.SecurityHeaders()).Get("/uploads/*", s.serveUploads)
}

// serveUploads serves files from the uploads directory. Directory listings are not served.
func (s *Server) serveUploads(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || strings.HasSuffix(name, "/") {
		http.NotFound(w, r)
		return
	}
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.store.UploadsPath())))
	fs.ServeHTTP(w, r)
}
