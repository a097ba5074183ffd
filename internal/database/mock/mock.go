// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/database"
)

// MockProductStore is an in-memory implementation of database.ProductWriter
type MockProductStore struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product

	// Error injection
	ListError   error
	GetError    error
	CountError  error
	CreateError error
	UpdateError error
	DeleteError error
}

// NewMockProductStore creates a new mock product store
func NewMockProductStore() *MockProductStore {
	return &MockProductStore{
		products: make(map[string]*catalog.Product),
	}
}

// AddProduct adds a product to the mock store as-is
func (m *MockProductStore) AddProduct(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = &p
}

// Len returns the number of stored products, deleted ones included
func (m *MockProductStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

// ListActive returns non-deleted products, newest first
func (m *MockProductStore) ListActive(ctx context.Context) ([]catalog.Product, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := []catalog.Product{}
	for _, p := range m.products {
		if !p.IsDeleted {
			products = append(products, *p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

// Get retrieves a product by ID
func (m *MockProductStore) Get(ctx context.Context, id string) (*catalog.Product, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Count returns the number of non-deleted products
func (m *MockProductStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.products {
		if !p.IsDeleted {
			count++
		}
	}
	return count, nil
}

// Create stores a product, rejecting duplicates the way the unique index does
func (m *MockProductStore) Create(ctx context.Context, p *catalog.Product) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.products {
		if sameIdentity(existing, p) {
			return database.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = catalog.NewID()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Shape == "" {
		p.Shape = catalog.ShapeBox
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// Update replaces a stored product, rejecting changes that collide with another product
func (m *MockProductStore) Update(ctx context.Context, p *catalog.Product) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[p.ID]; !ok {
		return database.ErrNotFound
	}
	for id, existing := range m.products {
		if id != p.ID && sameIdentity(existing, p) {
			return database.ErrDuplicate
		}
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// Delete removes a product and returns it
func (m *MockProductStore) Delete(ctx context.Context, id string) (*catalog.Product, error) {
	if m.DeleteError != nil {
		return nil, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	delete(m.products, id)
	return p, nil
}

func sameIdentity(a, b *catalog.Product) bool {
	return a.Name == b.Name &&
		a.OriginalPrice == b.OriginalPrice &&
		a.ManufacturingDate.Equal(b.ManufacturingDate) &&
		a.ExpiryDate.Equal(b.ExpiryDate) &&
		a.BatchNumber == b.BatchNumber
}

var _ database.ProductWriter = (*MockProductStore)(nil)
