package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/payment"
)

// EventVerifier verifies webhook signatures at the processor boundary.
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (payment.Event, error)
}

// EventProcessor handles verified webhook events.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event payment.Event) error
}

// WebhookHandler receives payment processor webhooks.
type WebhookHandler struct {
	verifier  EventVerifier
	processor EventProcessor
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier EventVerifier, processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, processor: processor}
}

// Handle handles POST /api/webhook/stripe. The raw body is verified against
// the signature header before anything is parsed; unverified payloads get a
// 400 and are never processed. Processing failures return 500 so the
// processor redelivers.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	event, err := h.verifier.VerifyEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("webhook signature verification failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}

	if err := h.processor.ProcessEvent(c.Context(), event); err != nil {
		log.Error().Err(err).Str("eventId", event.ID).Str("type", event.Type).Msg("failed to process webhook event")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}
