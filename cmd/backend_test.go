package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/database/mock"
)

func TestCatalogSummary(t *testing.T) {
	t.Cleanup(database.ResetForTesting)

	products := mock.NewMockProductStore()
	products.AddProduct(catalog.Product{ID: "a"})
	products.AddProduct(catalog.Product{ID: "b"})
	products.AddProduct(catalog.Product{ID: "c", IsDeleted: true})

	tests := []struct {
		name     string
		backend  string
		readOnly bool
		want     string
	}{
		{"read-write", "postgres", false, "postgres catalog (read-write) with 2 active products"},
		{"read-only", "mysql", true, "mysql catalog (read-only) with 2 active products"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := func() database.ProductWriter { return products }
			if tt.readOnly {
				writer = nil
			}
			database.RegisterProductBackend(tt.backend, func() database.ProductReader { return products }, writer)

			got, err := catalogSummary(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCatalogSummary_Errors(t *testing.T) {
	t.Cleanup(database.ResetForTesting)

	database.ResetForTesting()
	if _, err := catalogSummary(context.Background()); err == nil {
		t.Error("expected error without a registered backend")
	}

	products := mock.NewMockProductStore()
	products.CountError = errors.New("connection reset")
	database.RegisterProductBackend("postgres", func() database.ProductReader { return products }, nil)
	if _, err := catalogSummary(context.Background()); err == nil {
		t.Error("expected count error to be returned")
	}
}
