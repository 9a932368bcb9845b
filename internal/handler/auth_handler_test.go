package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
	appvalidator "github.com/lovingyourskin/commerce-api/internal/validator"
)

// mockAuthService is a mock implementation of AuthServiceInterface.
type mockAuthService struct {
	loginFn func(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
}

func (m *mockAuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return &model.LoginResponse{}, nil
}

func setupAuthApp(mockSvc *mockAuthService) *fiber.App {
	app := fiber.New()
	h := NewAuthHandler(mockSvc, appvalidator.New())
	app.Post("/api/auth/login", h.Login)
	return app
}

func TestAuthHandler_Login_Success(t *testing.T) {
	mockSvc := &mockAuthService{
		loginFn: func(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
			assert.Equal(t, "admin@lys.com", req.Email)
			return &model.LoginResponse{Token: "signed.jwt.token", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	app := setupAuthApp(mockSvc)

	body := `{"email": "admin@lys.com", "password": "correct-horse-battery"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "signed.jwt.token", result.Token)
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	mockSvc := &mockAuthService{
		loginFn: func(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
			return nil, service.ErrInvalidCredentials
		},
	}
	app := setupAuthApp(mockSvc)

	body := `{"email": "admin@lys.com", "password": "wrong-password-1"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid email or password", result["error"])
}

func TestAuthHandler_Login_BadEmail(t *testing.T) {
	app := setupAuthApp(&mockAuthService{})

	body := `{"email": "not-an-email", "password": "correct-horse-battery"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthHandler_Login_ShortPassword(t *testing.T) {
	app := setupAuthApp(&mockAuthService{})

	body := `{"email": "admin@lys.com", "password": "short"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
