package service

import (
	"strings"

	caterrors "github.com/rmartins/catalog_service/internal/catalog/errors"
)

// Category is the closed set of product categories.
// Values are stored and serialized as their uppercase names.
type Category string

const (
	CategoryClothing    Category = "CLOTHING"
	CategoryShoes       Category = "SHOES"
	CategoryAccessories Category = "ACCESSORIES"
	CategoryElectronics Category = "ELECTRONICS"
	CategorySports      Category = "SPORTS"
)

// ParseCategory matches a category string case-insensitively against the closed set.
// Returns ErrUnknownCategory for anything outside it.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToUpper(strings.TrimSpace(s))); c {
	case CategoryClothing, CategoryShoes, CategoryAccessories, CategoryElectronics, CategorySports:
		return c, nil
	default:
		return "", caterrors.ErrUnknownCategory
	}
}
