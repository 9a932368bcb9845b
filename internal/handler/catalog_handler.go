package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
)

// CatalogHandler handles HTTP requests for brands and products.
type CatalogHandler struct {
	service   *service.CatalogService
	validator *validator.Validate
}

// NewCatalogHandler creates a new CatalogHandler with the given service and validator.
func NewCatalogHandler(svc *service.CatalogService, v *validator.Validate) *CatalogHandler {
	return &CatalogHandler{service: svc, validator: v}
}

// CreateBrand handles POST /api/admin/brands.
func (h *CatalogHandler) CreateBrand(c *fiber.Ctx) error {
	var req model.CreateBrandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	b, err := h.service.CreateBrand(c.Context(), &req)
	if err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("failed to create brand")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// ListBrands handles GET /api/brands.
func (h *CatalogHandler) ListBrands(c *fiber.Ctx) error {
	brands, err := h.service.ListBrands(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list brands")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(brands)
}

// GetBrand handles GET /api/brands/:id.
func (h *CatalogHandler) GetBrand(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid brand id"})
	}

	b, err := h.service.GetBrand(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBrandNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "brand not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get brand")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(b)
}

// VolumeDiscount handles GET /api/brands/:id/volume-discount?orderTotal=...
func (h *CatalogHandler) VolumeDiscount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid brand id"})
	}
	orderTotal := c.QueryFloat("orderTotal", 0)
	if orderTotal < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: orderTotal must be non-negative"})
	}

	result, err := h.service.VolumeDiscount(c.Context(), id, orderTotal)
	if err != nil {
		if errors.Is(err, service.ErrBrandNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "brand not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to compute volume discount")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(result)
}

// CreateProduct handles POST /api/admin/products.
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req model.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	p, err := h.service.CreateProduct(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrBrandNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "brand not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("name", req.Name).Msg("failed to create product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// ListProducts handles GET /api/products?brandId=...
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	var brandID *uuid.UUID
	if raw := c.Query("brandId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid brand id"})
		}
		brandID = &id
	}

	products, err := h.service.ListProducts(c.Context(), brandID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(products)
}

// GetProduct handles GET /api/products/:id.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	p, err := h.service.GetProduct(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(p)
}
