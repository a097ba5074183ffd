package database

import (
	"context"
	"errors"
)

var (
	productReader func() ProductReader
	productWriter func() ProductWriter
	backendName   string
)

// RegisterProductBackend registers repository constructors for the active backend.
// writer may be nil for read-only backends.
// This is called from cmd to avoid import cycles between backends and consumers.
func RegisterProductBackend(name string, reader func() ProductReader, writer func() ProductWriter) {
	backendName = name
	productReader = reader
	productWriter = writer
}

// ResetForTesting clears the registered backend.
func ResetForTesting() {
	backendName = ""
	productReader = nil
	productWriter = nil
}

// BackendName returns the name of the registered backend ("postgres", "mysql", ...).
func BackendName() string {
	return backendName
}

// GetProductReader returns a ProductReader from the registered backend
func GetProductReader(ctx context.Context) (ProductReader, error) {
	if productReader == nil {
		return nil, errors.New("catalog backend not initialized: DATABASE_URL is required")
	}
	return productReader(), nil
}

// GetProductWriter returns a ProductWriter from the registered backend
func GetProductWriter(ctx context.Context) (ProductWriter, error) {
	if productReader == nil {
		return nil, errors.New("catalog backend not initialized: DATABASE_URL is required")
	}
	if productWriter == nil {
		return nil, ErrReadOnly
	}
	return productWriter(), nil
}
