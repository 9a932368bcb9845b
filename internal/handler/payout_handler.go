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

// PayoutServiceInterface defines the interface for payout business logic.
type PayoutServiceInterface interface {
	Create(ctx context.Context, req *model.CreatePayoutRequest, createdBy string) (*model.CommissionPayout, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error)
	ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionPayout, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error)
	Complete(ctx context.Context, id uuid.UUID, reference string) (*model.CommissionPayout, error)
	Fail(ctx context.Context, id uuid.UUID, reason string) (*model.CommissionPayout, error)
}

// PayoutHandler handles HTTP requests for payout operations.
type PayoutHandler struct {
	service   PayoutServiceInterface
	validator *validator.Validate
}

// NewPayoutHandler creates a new PayoutHandler with the given service and validator.
func NewPayoutHandler(svc PayoutServiceInterface, v *validator.Validate) *PayoutHandler {
	return &PayoutHandler{service: svc, validator: v}
}

// Create handles POST /api/admin/payouts.
func (h *PayoutHandler) Create(c *fiber.Ctx) error {
	var req model.CreatePayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	createdBy, _ := c.Locals("adminEmail").(string)
	p, err := h.service.Create(c.Context(), &req, createdBy)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "affiliate not found"})
		}
		if errors.Is(err, service.ErrNothingToPayOut) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no pending commission in period"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("affiliateId", req.AffiliateID).Msg("failed to draft payout")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Get handles GET /api/admin/payouts/:id.
func (h *PayoutHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payout id"})
	}

	p, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payout not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get payout")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(p)
}

// ListByAffiliate handles GET /api/admin/affiliates/:id/payouts.
func (h *PayoutHandler) ListByAffiliate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid affiliate id"})
	}

	payouts, err := h.service.ListByAffiliate(c.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("affiliateId", id.String()).Msg("failed to list payouts")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(payouts)
}

// MarkProcessing handles POST /api/admin/payouts/:id/process.
func (h *PayoutHandler) MarkProcessing(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
		return h.service.MarkProcessing(ctx, id)
	})
}

// Complete handles POST /api/admin/payouts/:id/complete.
func (h *PayoutHandler) Complete(c *fiber.Ctx) error {
	var req struct {
		Reference string `json:"reference"`
	}
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	return h.transition(c, func(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
		return h.service.Complete(ctx, id, req.Reference)
	})
}

// Fail handles POST /api/admin/payouts/:id/fail.
func (h *PayoutHandler) Fail(c *fiber.Ctx) error {
	var req model.FailPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}
	return h.transition(c, func(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
		return h.service.Fail(ctx, id, req.Reason)
	})
}

func (h *PayoutHandler) transition(c *fiber.Ctx, fn func(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payout id"})
	}

	p, err := fn(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payout not found"})
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to transition payout")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(p)
}
