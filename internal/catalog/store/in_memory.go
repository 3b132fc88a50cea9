package store

import (
	"context"
	"sort"
	"sync"

	caterrors "github.com/rmartins/catalog_service/internal/catalog/errors"
)

// InMemoryStore implements ProductStore and VariationStore using in-memory maps.
// It is used by unit tests and local runs without a database.
type InMemoryStore struct {
	mu              sync.RWMutex
	products        map[int64]*Product
	nextProductID   int64
	nextVariationID int64
}

var (
	_ ProductStore   = (*InMemoryStore)(nil)
	_ VariationStore = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates a new empty in-memory catalog store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products:        make(map[int64]*Product),
		nextProductID:   1,
		nextVariationID: 1,
	}
}

// FindByID retrieves a product with its variations by its ID.
func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, caterrors.ErrProductNotFound
	}
	return copyProduct(p), nil
}

// FindAll retrieves all products ordered by id.
func (s *InMemoryStore) FindAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, *copyProduct(p))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ExistsByID reports whether a product exists with the given ID.
func (s *InMemoryStore) ExistsByID(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.products[id]
	return ok, nil
}

// Create stores a product and its variations, assigning fresh ids.
func (s *InMemoryStore) Create(_ context.Context, product *Product) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextProductID
	s.nextProductID++
	for i := range product.Variations {
		product.Variations[i].ID = s.nextVariationID
		product.Variations[i].ProductID = product.ID
		s.nextVariationID++
	}
	s.products[product.ID] = copyProduct(product)
	return product, nil
}

// Save replaces a stored product and its variation rows.
func (s *InMemoryStore) Save(_ context.Context, product *Product) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, caterrors.ErrProductNotFound
	}
	s.products[product.ID] = copyProduct(product)
	return product, nil
}

// DeleteByID removes a product and, by ownership, all of its variations.
func (s *InMemoryStore) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return caterrors.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

// FindVariation retrieves a variation by the (product id, variation id) pair.
func (s *InMemoryStore) FindVariation(_ context.Context, productID, variationID int64) (*Variation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, caterrors.ErrVariationNotFound
	}
	for i := range p.Variations {
		if p.Variations[i].ID == variationID {
			v := p.Variations[i]
			return &v, nil
		}
	}
	return nil, caterrors.ErrVariationNotFound
}

// CreateVariation stores a new variation under its owning product.
func (s *InMemoryStore) CreateVariation(_ context.Context, variation *Variation) (*Variation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[variation.ProductID]
	if !ok {
		return nil, caterrors.ErrProductNotFound
	}
	variation.ID = s.nextVariationID
	s.nextVariationID++
	p.Variations = append(p.Variations, *variation)
	return variation, nil
}

// DeleteVariationByID removes a variation by its ID, leaving siblings untouched.
func (s *InMemoryStore) DeleteVariationByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		for i := range p.Variations {
			if p.Variations[i].ID == id {
				p.Variations = append(p.Variations[:i], p.Variations[i+1:]...)
				return nil
			}
		}
	}
	return caterrors.ErrVariationNotFound
}

func copyProduct(p *Product) *Product {
	cp := *p
	cp.Variations = make([]Variation, len(p.Variations))
	copy(cp.Variations, p.Variations)
	return &cp
}
