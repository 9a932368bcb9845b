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

// PreorderHandler handles HTTP requests for preorder operations.
type PreorderHandler struct {
	service   *service.PreorderService
	validator *validator.Validate
}

// NewPreorderHandler creates a new PreorderHandler with the given service and validator.
func NewPreorderHandler(svc *service.PreorderService, v *validator.Validate) *PreorderHandler {
	return &PreorderHandler{service: svc, validator: v}
}

// createPreorderBody wraps the preorder draft with its redirect URLs.
type createPreorderBody struct {
	model.CreatePreorderRequest
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}

// Create handles POST /api/preorders.
func (h *PreorderHandler) Create(c *fiber.Ctx) error {
	var body createPreorderBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	p, session, err := h.service.Create(c.Context(), &body.CreatePreorderRequest, body.SuccessURL, body.CancelURL)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("campaignId", body.CampaignID).Msg("failed to create preorder")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"preorder": p, "checkout": session})
}

// Get handles GET /api/preorders/:id.
func (h *PreorderHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid preorder id"})
	}

	p, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPreorderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "preorder not found"})
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to get preorder")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(p)
}
