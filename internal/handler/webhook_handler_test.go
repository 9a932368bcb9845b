package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovingyourskin/commerce-api/internal/payment"
)

// mockEventVerifier is a mock implementation of EventVerifier.
type mockEventVerifier struct {
	verifyFn func(payload []byte, signatureHeader string) (payment.Event, error)
}

func (m *mockEventVerifier) VerifyEvent(payload []byte, signatureHeader string) (payment.Event, error) {
	if m.verifyFn != nil {
		return m.verifyFn(payload, signatureHeader)
	}
	return payment.Event{}, nil
}

// mockEventProcessor is a mock implementation of EventProcessor.
type mockEventProcessor struct {
	processFn func(ctx context.Context, event payment.Event) error
}

func (m *mockEventProcessor) ProcessEvent(ctx context.Context, event payment.Event) error {
	if m.processFn != nil {
		return m.processFn(ctx, event)
	}
	return nil
}

func setupWebhookApp(verifier *mockEventVerifier, processor *mockEventProcessor) *fiber.App {
	app := fiber.New()
	h := NewWebhookHandler(verifier, processor)
	app.Post("/api/webhook/stripe", h.Handle)
	return app
}

func webhookRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	return req
}

func TestWebhookHandler_Handle_Success(t *testing.T) {
	verifier := &mockEventVerifier{
		verifyFn: func(payload []byte, signatureHeader string) (payment.Event, error) {
			assert.Equal(t, "t=1,v1=abc", signatureHeader)
			return payment.Event{ID: "evt_001", Type: payment.EventCheckoutCompleted, ObjectID: "cs_test_123"}, nil
		},
	}
	var processed payment.Event
	processor := &mockEventProcessor{
		processFn: func(ctx context.Context, event payment.Event) error {
			processed = event
			return nil
		},
	}
	app := setupWebhookApp(verifier, processor)

	resp, err := app.Test(webhookRequest(`{"id": "evt_001"}`, "t=1,v1=abc"))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "evt_001", processed.ID)
	assert.Equal(t, "cs_test_123", processed.ObjectID)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, true, result["received"])
}

func TestWebhookHandler_Handle_BadSignature(t *testing.T) {
	verifier := &mockEventVerifier{
		verifyFn: func(payload []byte, signatureHeader string) (payment.Event, error) {
			return payment.Event{}, errors.New("signature mismatch")
		},
	}
	processorCalled := false
	processor := &mockEventProcessor{
		processFn: func(ctx context.Context, event payment.Event) error {
			processorCalled = true
			return nil
		},
	}
	app := setupWebhookApp(verifier, processor)

	resp, err := app.Test(webhookRequest(`{"id": "evt_001"}`, "t=1,v1=forged"))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, processorCalled, "unverified payloads must never reach the processor")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid signature", result["error"])
}

func TestWebhookHandler_Handle_ProcessingFailure(t *testing.T) {
	processor := &mockEventProcessor{
		processFn: func(ctx context.Context, event payment.Event) error {
			return errors.New("database unavailable")
		},
	}
	app := setupWebhookApp(&mockEventVerifier{}, processor)

	resp, err := app.Test(webhookRequest(`{"id": "evt_001"}`, "t=1,v1=abc"))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, "500 asks the processor to redeliver")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "processing failed", result["error"])
}
