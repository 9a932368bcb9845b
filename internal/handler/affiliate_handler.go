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

// AffiliateHandler handles HTTP requests for affiliate operations.
type AffiliateHandler struct {
	service   *service.AffiliateService
	validator *validator.Validate
}

// NewAffiliateHandler creates a new AffiliateHandler with the given service and validator.
func NewAffiliateHandler(svc *service.AffiliateService, v *validator.Validate) *AffiliateHandler {
	return &AffiliateHandler{service: svc, validator: v}
}

// Create handles POST /api/admin/affiliates.
func (h *AffiliateHandler) Create(c *fiber.Ctx) error {
	var req model.CreateAffiliateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	createdBy, _ := c.Locals("adminEmail").(string)
	a, err := h.service.Create(c.Context(), &req, createdBy)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "affiliate already exists"})
		}
		if errors.Is(err, service.ErrCodeNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "linked discount code not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("email", req.Email).Msg("failed to create affiliate")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// List handles GET /api/admin/affiliates.
func (h *AffiliateHandler) List(c *fiber.Ctx) error {
	affiliates, err := h.service.List(c.Context(), c.Query("status"))
	if err != nil {
		log.Error().Err(err).Msg("failed to list affiliates")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(affiliates)
}

// Get handles GET /api/admin/affiliates/:id.
func (h *AffiliateHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid affiliate id"})
	}

	a, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "affiliate not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get affiliate")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(a)
}

// Update handles PATCH /api/admin/affiliates/:id.
func (h *AffiliateHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid affiliate id"})
	}

	var req model.UpdateAffiliateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	a, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "affiliate not found"})
		}
		if errors.Is(err, service.ErrAffiliateExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "affiliate already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to update affiliate")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(a)
}

// Approve handles POST /api/admin/affiliates/:id/approve.
func (h *AffiliateHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
		return h.service.Approve(ctx, id)
	})
}

// Suspend handles POST /api/admin/affiliates/:id/suspend.
func (h *AffiliateHandler) Suspend(c *fiber.Ctx) error {
	var req model.SuspendAffiliateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}
	return h.transition(c, func(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
		return h.service.Suspend(ctx, id, req.Reason)
	})
}

// Terminate handles POST /api/admin/affiliates/:id/terminate.
func (h *AffiliateHandler) Terminate(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
		return h.service.Terminate(ctx, id)
	})
}

func (h *AffiliateHandler) transition(c *fiber.Ctx, fn func(ctx context.Context, id uuid.UUID) (*model.Affiliate, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid affiliate id"})
	}

	a, err := fn(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "affiliate not found"})
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to transition affiliate")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(a)
}

// Commissions handles GET /api/admin/affiliates/:id/commissions.
func (h *AffiliateHandler) Commissions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid affiliate id"})
	}

	records, err := h.service.Commissions(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "affiliate not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to list commissions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(records)
}

// ReverseCommission handles POST /api/admin/commissions/:id/reverse.
func (h *AffiliateHandler) ReverseCommission(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid commission id"})
	}

	rec, err := h.service.ReverseCommission(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCommissionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "commission record not found"})
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to reverse commission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(rec)
}

// TrackClick handles POST /api/affiliates/track-click. Public endpoint; it
// answers 204 for unknown codes too, so it cannot be used to probe codes.
func (h *AffiliateHandler) TrackClick(c *fiber.Ctx) error {
	var req model.TrackClickRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.TrackClick(c.Context(), &req); err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to track click")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
