package cmd

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/storage"
)

func TestVerifyProducts(t *testing.T) {
	store, err := storage.New(config.StorageConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(store.UploadsPath(), name), data, 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	write("good.png", buf.Bytes())
	write("bad.png", []byte("garbage"))

	products := []catalog.Product{
		{ID: "a", Name: "Good", Image: "/uploads/good.png"},
		{ID: "b", Name: "Front only", ImageFront: "/uploads/good.png"},
		{ID: "c", Name: "Corrupt", Image: "/uploads/bad.png"},
		{ID: "d", Name: "Missing", Image: "/uploads/gone.png"},
		{ID: "e", Name: "Bare"},
	}

	var calls atomic.Int32
	report, err := verifyProducts(context.Background(), products, store, 3, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Checked != 5 || report.OK != 2 {
		t.Errorf("expected 5 checked / 2 ok, got %d / %d", report.Checked, report.OK)
	}
	if int(calls.Load()) != len(products) {
		t.Errorf("expected %d progress calls, got %d", len(products), calls.Load())
	}

	want := map[string]string{"c": problemCorrupt, "d": problemMissing, "e": problemNoImage}
	if len(report.Issues) != len(want) {
		t.Fatalf("expected %d issues, got %+v", len(want), report.Issues)
	}
	for i, id := range []string{"c", "d", "e"} {
		issue := report.Issues[i]
		if issue.ProductID != id || issue.Problem != want[id] {
			t.Errorf("issue %d: expected %s/%s, got %s/%s", i, id, want[id], issue.ProductID, issue.Problem)
		}
	}
}

func TestVerifyProducts_Cancelled(t *testing.T) {
	store, err := storage.New(config.StorageConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = verifyProducts(ctx, []catalog.Product{{ID: "a", Image: "/uploads/x.png"}}, store, 1, func() {})
	if err == nil {
		t.Error("expected cancellation error")
	}
}
