package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
)

// DiscountServiceInterface defines the interface for discount code business logic.
type DiscountServiceInterface interface {
	Create(ctx context.Context, req *model.CreateDiscountCodeRequest, createdBy string) (*model.DiscountCode, error)
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error)
	List(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateDiscountCodeRequest) (*model.DiscountCode, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Validate(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error)
	UsageHistory(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error)
}

// DiscountHandler handles HTTP requests for discount code operations.
type DiscountHandler struct {
	service   DiscountServiceInterface
	validator *validator.Validate
}

// NewDiscountHandler creates a new DiscountHandler with the given service and validator.
func NewDiscountHandler(svc DiscountServiceInterface, v *validator.Validate) *DiscountHandler {
	return &DiscountHandler{service: svc, validator: v}
}

// Create handles POST /api/admin/discounts.
func (h *DiscountHandler) Create(c *fiber.Ctx) error {
	var req model.CreateDiscountCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	createdBy, _ := c.Locals("adminEmail").(string)
	code, err := h.service.Create(c.Context(), &req, createdBy)
	if err != nil {
		if errors.Is(err, service.ErrCodeExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "discount code already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to create discount code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(code)
}

// List handles GET /api/admin/discounts.
func (h *DiscountHandler) List(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("includeInactive", false)
	codes, err := h.service.List(c.Context(), includeInactive)
	if err != nil {
		log.Error().Err(err).Msg("failed to list discount codes")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(codes)
}

// Get handles GET /api/admin/discounts/:id.
func (h *DiscountHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid discount code id"})
	}

	code, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount code not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get discount code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(code)
}

// Update handles PATCH /api/admin/discounts/:id.
func (h *DiscountHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid discount code id"})
	}

	var req model.UpdateDiscountCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	code, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount code not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to update discount code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(code)
}

// Deactivate handles POST /api/admin/discounts/:id/deactivate.
func (h *DiscountHandler) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid discount code id"})
	}

	if err := h.service.Deactivate(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount code not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to deactivate discount code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete handles DELETE /api/admin/discounts/:id.
func (h *DiscountHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid discount code id"})
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount code not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to delete discount code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Validate handles POST /api/discounts/validate. Redeemability failures are
// 200 responses with valid=false and a reason, so storefronts can show them
// inline without special-casing status codes.
func (h *DiscountHandler) Validate(c *fiber.Ctx) error {
	var req model.ValidateDiscountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	result, err := h.service.Validate(c.Context(), &req)
	if err != nil {
		if reason, ok := validationFailureReason(err); ok {
			return c.JSON(fiber.Map{"valid": false, "reason": reason})
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to validate discount code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(result)
}

// UsageHistory handles GET /api/admin/discounts/:code/usage.
func (h *DiscountHandler) UsageHistory(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
	}

	usage, err := h.service.UsageHistory(c.Context(), code, c.QueryInt("limit", 100))
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to list discount usage")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(usage)
}

// validationFailureReason maps redeemability failures to storefront reasons.
func validationFailureReason(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		return "not_found", true
	case errors.Is(err, service.ErrCodeInactive):
		return "inactive", true
	case errors.Is(err, service.ErrCodeOutOfWindow):
		return "expired", true
	case errors.Is(err, service.ErrUsageExceeded):
		return "usage_limit_reached", true
	case errors.Is(err, service.ErrPerCustomerExceeded):
		return "customer_limit_reached", true
	case errors.Is(err, service.ErrConditionsNotMet):
		return "conditions_not_met", true
	}
	return "", false
}
