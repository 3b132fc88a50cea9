// Package errors provides custom error types for catalog operations.
package errors

import "errors"

var (
	// ErrProductNotFound is returned when no product exists with the requested id.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariationNotFound is returned when no variation with the requested id belongs to the product.
	ErrVariationNotFound = errors.New("product variation not found")
	// ErrVariationUnavailable is returned when a variation would be available under an unavailable product.
	ErrVariationUnavailable = errors.New("variation cannot be available while its product is unavailable")
	// ErrUnknownCategory is returned when a category string does not match the closed category set.
	ErrUnknownCategory = errors.New("unknown product category")
)
