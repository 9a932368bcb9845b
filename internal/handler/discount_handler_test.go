package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
	appvalidator "github.com/lovingyourskin/commerce-api/internal/validator"
)

// mockDiscountService is a mock implementation of DiscountServiceInterface.
type mockDiscountService struct {
	createFn       func(ctx context.Context, req *model.CreateDiscountCodeRequest, createdBy string) (*model.DiscountCode, error)
	getByCodeFn    func(ctx context.Context, code string) (*model.DiscountCode, error)
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error)
	listFn         func(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error)
	updateFn       func(ctx context.Context, id uuid.UUID, req *model.UpdateDiscountCodeRequest) (*model.DiscountCode, error)
	deactivateFn   func(ctx context.Context, id uuid.UUID) error
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	validateFn     func(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error)
	usageHistoryFn func(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error)
}

func (m *mockDiscountService) Create(ctx context.Context, req *model.CreateDiscountCodeRequest, createdBy string) (*model.DiscountCode, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req, createdBy)
	}
	return &model.DiscountCode{}, nil
}

func (m *mockDiscountService) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockDiscountService) GetByID(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDiscountService) List(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error) {
	if m.listFn != nil {
		return m.listFn(ctx, includeInactive)
	}
	return []model.DiscountCode{}, nil
}

func (m *mockDiscountService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDiscountCodeRequest) (*model.DiscountCode, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.DiscountCode{}, nil
}

func (m *mockDiscountService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *mockDiscountService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDiscountService) Validate(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, req)
	}
	return &model.DiscountValidationResult{Valid: true}, nil
}

func (m *mockDiscountService) UsageHistory(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error) {
	if m.usageHistoryFn != nil {
		return m.usageHistoryFn(ctx, code, limit)
	}
	return []model.DiscountUsage{}, nil
}

func setupDiscountApp(mockSvc *mockDiscountService) *fiber.App {
	app := fiber.New()
	h := NewDiscountHandler(mockSvc, appvalidator.New())
	app.Post("/api/admin/discounts", h.Create)
	app.Get("/api/admin/discounts", h.List)
	app.Get("/api/admin/discounts/:id", h.Get)
	app.Patch("/api/admin/discounts/:id", h.Update)
	app.Post("/api/admin/discounts/:id/deactivate", h.Deactivate)
	app.Delete("/api/admin/discounts/:id", h.Delete)
	app.Get("/api/admin/discounts/:code/usage", h.UsageHistory)
	app.Post("/api/discounts/validate", h.Validate)
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDiscountHandler_Create_Success(t *testing.T) {
	var captured *model.CreateDiscountCodeRequest
	mockSvc := &mockDiscountService{
		createFn: func(ctx context.Context, req *model.CreateDiscountCodeRequest, createdBy string) (*model.DiscountCode, error) {
			captured = req
			return &model.DiscountCode{ID: uuid.New(), Code: "SAVE10"}, nil
		},
	}
	app := setupDiscountApp(mockSvc)

	body := `{
		"code": "SAVE10",
		"name": "Save 10%",
		"type": "general",
		"discountType": "percentage",
		"discountValue": 10,
		"validFrom": "2025-06-01T00:00:00Z",
		"active": true
	}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/admin/discounts", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.NotNil(t, captured)
	assert.Equal(t, "SAVE10", captured.Code)
	assert.Equal(t, 10.0, captured.DiscountValue)
}

func TestDiscountHandler_Create_MissingCode(t *testing.T) {
	app := setupDiscountApp(&mockDiscountService{})

	body := `{
		"name": "Save 10%",
		"type": "general",
		"discountType": "percentage",
		"discountValue": 10,
		"validFrom": "2025-06-01T00:00:00Z"
	}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/admin/discounts", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request: code is required", result["error"])
}

func TestDiscountHandler_Create_BadType(t *testing.T) {
	app := setupDiscountApp(&mockDiscountService{})

	body := `{
		"code": "SAVE10",
		"name": "Save 10%",
		"type": "mystery",
		"discountType": "percentage",
		"discountValue": 10,
		"validFrom": "2025-06-01T00:00:00Z"
	}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/admin/discounts", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Contains(t, result["error"], "type must be one of")
}

func TestDiscountHandler_Create_Duplicate(t *testing.T) {
	mockSvc := &mockDiscountService{
		createFn: func(ctx context.Context, req *model.CreateDiscountCodeRequest, createdBy string) (*model.DiscountCode, error) {
			return nil, service.ErrCodeExists
		},
	}
	app := setupDiscountApp(mockSvc)

	body := `{
		"code": "SAVE10",
		"name": "Save 10%",
		"type": "general",
		"discountType": "percentage",
		"discountValue": 10,
		"validFrom": "2025-06-01T00:00:00Z"
	}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/admin/discounts", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "discount code already exists", result["error"])
}

func TestDiscountHandler_Create_MalformedJSON(t *testing.T) {
	app := setupDiscountApp(&mockDiscountService{})

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/admin/discounts", `{not valid json}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request body", result["error"])
}

func TestDiscountHandler_Get_BadID(t *testing.T) {
	app := setupDiscountApp(&mockDiscountService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/discounts/not-a-uuid", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDiscountHandler_Get_NotFound(t *testing.T) {
	mockSvc := &mockDiscountService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
			return nil, service.ErrCodeNotFound
		},
	}
	app := setupDiscountApp(mockSvc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/discounts/"+uuid.NewString(), nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDiscountHandler_List_IncludeInactive(t *testing.T) {
	var capturedFlag bool
	mockSvc := &mockDiscountService{
		listFn: func(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error) {
			capturedFlag = includeInactive
			return []model.DiscountCode{}, nil
		},
	}
	app := setupDiscountApp(mockSvc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/discounts?includeInactive=true", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, capturedFlag)
}

func TestDiscountHandler_Deactivate_NoContent(t *testing.T) {
	app := setupDiscountApp(&mockDiscountService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/admin/discounts/"+uuid.NewString()+"/deactivate", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestDiscountHandler_Validate_Valid(t *testing.T) {
	now := time.Now()
	mockSvc := &mockDiscountService{
		validateFn: func(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error) {
			return &model.DiscountValidationResult{
				Valid: true,
				Code: &model.DiscountCode{
					Code:          "SAVE10",
					DiscountType:  model.DiscountValuePercentage,
					DiscountValue: 10,
					ValidFrom:     now,
				},
				ApplicableAmount: 100,
				DiscountAmount:   10,
			}, nil
		},
	}
	app := setupDiscountApp(mockSvc)

	body := `{"code": "SAVE10", "orderValue": 100}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/discounts/validate", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DiscountValidationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Valid)
	assert.Equal(t, 10.0, result.DiscountAmount)
}

func TestDiscountHandler_Validate_FailureReasons(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantReason string
	}{
		{"unknown code", service.ErrCodeNotFound, "not_found"},
		{"inactive", service.ErrCodeInactive, "inactive"},
		{"out of window", service.ErrCodeOutOfWindow, "expired"},
		{"exhausted", service.ErrUsageExceeded, "usage_limit_reached"},
		{"customer cap", service.ErrPerCustomerExceeded, "customer_limit_reached"},
		{"conditions", service.ErrConditionsNotMet, "conditions_not_met"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockDiscountService{
				validateFn: func(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error) {
					return nil, tt.serviceErr
				},
			}
			app := setupDiscountApp(mockSvc)

			body := `{"code": "SAVE10", "orderValue": 100}`
			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/discounts/validate", body))
			require.NoError(t, err)

			assert.Equal(t, fiber.StatusOK, resp.StatusCode, "redeemability failures are 200s")

			var result map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			assert.Equal(t, false, result["valid"])
			assert.Equal(t, tt.wantReason, result["reason"])
		})
	}
}

func TestDiscountHandler_Validate_InfraError(t *testing.T) {
	mockSvc := &mockDiscountService{
		validateFn: func(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error) {
			return nil, errors.New("database connection failed")
		},
	}
	app := setupDiscountApp(mockSvc)

	body := `{"code": "SAVE10", "orderValue": 100}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/discounts/validate", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestDiscountHandler_UsageHistory_PassesLimit(t *testing.T) {
	var capturedCode string
	var capturedLimit int
	mockSvc := &mockDiscountService{
		usageHistoryFn: func(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error) {
			capturedCode = code
			capturedLimit = limit
			return []model.DiscountUsage{}, nil
		},
	}
	app := setupDiscountApp(mockSvc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/discounts/SAVE10/usage?limit=25", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "SAVE10", capturedCode)
	assert.Equal(t, 25, capturedLimit)
}
