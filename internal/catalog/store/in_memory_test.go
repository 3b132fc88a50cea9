package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caterrors "github.com/rmartins/catalog_service/internal/catalog/errors"
)

func newStoredProduct(t *testing.T, s *InMemoryStore) *Product {
	t.Helper()
	created, err := s.Create(context.Background(), &Product{
		Name:        "Plain T-Shirt",
		Description: "Cotton t-shirt",
		Category:    "CLOTHING",
		Available:   true,
		Variations: []Variation{
			{SizeName: "M", Description: "medium", Price: decimal.NewFromFloat(49.90), Available: true},
			{SizeName: "L", Description: "large", Price: decimal.NewFromFloat(49.90), Available: false},
		},
	})
	require.NoError(t, err)
	return created
}

func TestInMemoryStore_Create_AssignsIDs(t *testing.T) {
	s := NewInMemoryStore()

	product := newStoredProduct(t, s)

	assert.Equal(t, int64(1), product.ID)
	require.Len(t, product.Variations, 2)
	assert.Equal(t, int64(1), product.Variations[0].ID)
	assert.Equal(t, int64(2), product.Variations[1].ID)
	assert.Equal(t, product.ID, product.Variations[0].ProductID)
}

func TestInMemoryStore_FindByID_ReturnsCopy(t *testing.T) {
	s := NewInMemoryStore()
	product := newStoredProduct(t, s)

	found, err := s.FindByID(context.Background(), product.ID)
	require.NoError(t, err)

	// mutating the returned value must not touch the stored one
	found.Name = "Hacked"
	found.Variations[0].SizeName = "XXL"

	again, err := s.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plain T-Shirt", again.Name)
	assert.Equal(t, "M", again.Variations[0].SizeName)
}

func TestInMemoryStore_DeleteByID_CascadesToVariations(t *testing.T) {
	s := NewInMemoryStore()
	product := newStoredProduct(t, s)
	variationID := product.Variations[0].ID

	require.NoError(t, s.DeleteByID(context.Background(), product.ID))

	_, err := s.FindByID(context.Background(), product.ID)
	assert.ErrorIs(t, err, caterrors.ErrProductNotFound)
	_, err = s.FindVariation(context.Background(), product.ID, variationID)
	assert.ErrorIs(t, err, caterrors.ErrVariationNotFound)
}

func TestInMemoryStore_FindVariation_ScopedToProduct(t *testing.T) {
	s := NewInMemoryStore()
	first := newStoredProduct(t, s)
	second := newStoredProduct(t, s)

	_, err := s.FindVariation(context.Background(), first.ID, second.Variations[0].ID)
	assert.ErrorIs(t, err, caterrors.ErrVariationNotFound)

	found, err := s.FindVariation(context.Background(), second.ID, second.Variations[0].ID)
	require.NoError(t, err)
	assert.Equal(t, second.Variations[0].ID, found.ID)
}

func TestInMemoryStore_Save_UnknownProduct(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Save(context.Background(), &Product{ID: 404, Name: "ghost"})

	assert.ErrorIs(t, err, caterrors.ErrProductNotFound)
}

func TestInMemoryStore_DeleteVariationByID_LeavesSiblings(t *testing.T) {
	s := NewInMemoryStore()
	product := newStoredProduct(t, s)

	require.NoError(t, s.DeleteVariationByID(context.Background(), product.Variations[0].ID))

	found, err := s.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Len(t, found.Variations, 1)
	assert.Equal(t, "L", found.Variations[0].SizeName)
}
