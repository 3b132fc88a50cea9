// Package rest provides HTTP handlers for catalog operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	caterrors "github.com/rmartins/catalog_service/internal/catalog/errors"
	"github.com/rmartins/catalog_service/internal/catalog/service"
	"github.com/rmartins/catalog_service/internal/pkg/web"
)

type Handler struct {
	service  service.CatalogService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the catalog API with the provided service.
func NewHandler(service service.CatalogService, logger *slog.Logger) *Handler {
	validate := validator.New()
	// Let numeric rules like gte=0 apply to decimal price fields.
	validate.RegisterCustomTypeFunc(decimalAsFloat, decimal.Decimal{})

	return &Handler{
		service:  service,
		validate: validate,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the catalog service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.CreateProduct)

		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Patch("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)

			r.Post("/variation", h.CreateVariation)
			r.Route("/variation/{variationId}", func(r chi.Router) {
				r.Put("/", h.UpdateVariation)
				r.Delete("/", h.DeleteVariation)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// CreateProduct handles the creation of a new product with its variations.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	var productCreateDto service.ProductCreateDto
	if !h.decodeAndValidate(w, r, mLogger, &productCreateDto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to create product", "name", productCreateDto.Name)
	created, err := h.service.CreateProduct(r.Context(), productCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", slog.Int64("ID", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// CreateVariation handles appending a new variation to an existing product.
func (h *Handler) CreateVariation(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return
	}

	var variationCreateDto service.VariationCreateDto
	if !h.decodeAndValidate(w, r, mLogger, &variationCreateDto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to create variation", "productID", productID)
	updated, err := h.service.CreateVariation(r.Context(), productID, variationCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to create variation for product %d", productID))
		return
	}
	mLogger.InfoContext(r.Context(), "Variation created successfully", slog.Int64("productID", productID))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// FindAll retrieves a list of all products.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	mLogger.DebugContext(r.Context(), "Received request to find all products")
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", productID)
	found, err := h.service.FindByID(r.Context(), productID)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve product %d", productID))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", slog.Int64("ID", found.ID))
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// UpdateProduct handles a partial product update; absent fields are left untouched.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return
	}

	var productUpdateDto service.ProductUpdateDto
	if !h.decodeAndValidate(w, r, mLogger, &productUpdateDto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", productID)
	updated, err := h.service.UpdateProduct(r.Context(), productID, productUpdateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update product %d", productID))
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", slog.Int64("ID", updated.ID))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// UpdateVariation handles a partial update of a variation within its product.
func (h *Handler) UpdateVariation(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return
	}
	variationID, ok := web.ParseID(w, r, mLogger, "variationId")
	if !ok {
		return
	}

	var variationUpdateDto service.VariationUpdateDto
	if !h.decodeAndValidate(w, r, mLogger, &variationUpdateDto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update variation", "productID", productID, "variationID", variationID)
	updated, err := h.service.UpdateVariation(r.Context(), productID, variationID, variationUpdateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update variation %d of product %d", variationID, productID))
		return
	}
	mLogger.InfoContext(r.Context(), "Variation updated successfully", slog.Int64("productID", productID), slog.Int64("variationID", variationID))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteProduct deletes a product and all of its variations.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", productID)
	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product %d", productID))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", slog.Int64("ID", productID))
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// DeleteVariation deletes a single variation scoped to its product.
func (h *Handler) DeleteVariation(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return
	}
	variationID, ok := web.ParseID(w, r, mLogger, "variationId")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to delete variation", "productID", productID, "variationID", variationID)
	if err := h.service.DeleteVariation(r.Context(), productID, variationID); err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete variation %d of product %d", variationID, productID))
		return
	}
	mLogger.InfoContext(r.Context(), "Variation deleted successfully", slog.Int64("productID", productID), slog.Int64("variationID", variationID))
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate decodes the request body into dto and validates it.
// On failure it writes the error response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			// If the error is a validation error, we can extract field-specific errors.
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "gte", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		// If it's not a validation error, we can return a generic error.
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps catalog errors to HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, caterrors.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
	case errors.Is(err, caterrors.ErrVariationNotFound):
		mLogger.WarnContext(r.Context(), "Variation not found", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, "Product variation not found")
	case errors.Is(err, caterrors.ErrVariationUnavailable):
		mLogger.WarnContext(r.Context(), "Availability conflict", "error", err)
		web.RespondError(w, mLogger, http.StatusConflict, err.Error())
	case errors.Is(err, caterrors.ErrUnknownCategory):
		mLogger.WarnContext(r.Context(), "Unknown category", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	default:
		mLogger.ErrorContext(r.Context(), fallback, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fallback)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// decimalAsFloat exposes decimal.Decimal values to the validator as float64.
func decimalAsFloat(field reflect.Value) any {
	if v, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := v.Float64()
		return f
	}
	return nil
}
