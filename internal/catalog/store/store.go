// Package store provides interfaces for product and variation storage operations.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a product row together with its owned variations.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Available   bool
	CreatedAt   *time.Time
	Variations  []Variation
}

// Variation is a product variation row. ProductID references the owning product.
type Variation struct {
	ID          int64
	ProductID   int64
	SizeName    string
	Description string
	Price       decimal.Decimal
	Available   bool
	CreatedAt   *time.Time
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindByID retrieves a single product with its variations by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindAll returns all products with their variations.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// ExistsByID reports whether a product exists with the given ID.
	ExistsByID(ctx context.Context, id int64) (bool, error)

	// Create persists a product together with its variations as one atomic unit.
	// Assigned ids are filled in on the returned product.
	Create(ctx context.Context, product *Product) (*Product, error)

	// Save updates a product row and all of its variation rows as one atomic unit.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Save(ctx context.Context, product *Product) (*Product, error)

	// DeleteByID removes a product by its ID, cascading to its variations.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error
}

// VariationStore is an interface for variation storage operations.
// Lookups are scoped to the owning product: the key is the (product id, variation id) pair.
type VariationStore interface {
	// FindVariation retrieves a variation scoped to its owning product.
	// Returns ErrVariationNotFound if no variation with that id belongs to the product.
	FindVariation(ctx context.Context, productID, variationID int64) (*Variation, error)

	// CreateVariation persists a new variation for an existing product.
	CreateVariation(ctx context.Context, variation *Variation) (*Variation, error)

	// DeleteVariationByID removes a variation by its ID.
	// Returns ErrVariationNotFound if no variation exists with the given ID.
	DeleteVariationByID(ctx context.Context, id int64) error
}
