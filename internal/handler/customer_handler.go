package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
)

// CustomerServiceInterface defines the interface for customer business logic.
type CustomerServiceInterface interface {
	Upsert(ctx context.Context, req *model.UpsertCustomerRequest) (*model.CustomerResponse, error)
	Get(ctx context.Context, customerID, email string) (*model.CustomerResponse, error)
}

// CustomerHandler handles HTTP requests for customer operations.
type CustomerHandler struct {
	service   CustomerServiceInterface
	validator *validator.Validate
}

// NewCustomerHandler creates a new CustomerHandler with the given service and validator.
func NewCustomerHandler(svc CustomerServiceInterface, v *validator.Validate) *CustomerHandler {
	return &CustomerHandler{service: svc, validator: v}
}

// Upsert handles POST /api/customer.
func (h *CustomerHandler) Upsert(c *fiber.Ctx) error {
	var req model.UpsertCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.Upsert(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("email", req.Email).Msg("failed to upsert customer")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(resp)
}

// Get handles GET /api/customer?customerId=...&email=...
func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	customerID := c.Query("customerId")
	email := c.Query("email")
	if customerID == "" && email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: customerId or email is required"})
	}

	resp, err := h.service.Get(c.Context(), customerID, email)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "customer not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("customerId", customerID).Msg("failed to get customer")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(resp)
}
