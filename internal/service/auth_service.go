package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/lovingyourskin/commerce-api/internal/model"
)

// AdminRepositoryInterface defines the interface for admin account access.
type AdminRepositoryInterface interface {
	GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	Insert(ctx context.Context, u *model.AdminUser) error
}

// AuthService issues and validates admin bearer tokens.
type AuthService struct {
	admins   AdminRepositoryInterface
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(admins AdminRepositoryInterface, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		admins:   admins,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// AdminClaims is the JWT payload for admin sessions.
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Login verifies credentials and issues a signed token. Unknown emails and
// wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	user, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := AdminClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	log.Info().Str("email", user.Email).Str("role", user.Role).Msg("admin logged in")
	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// HashPassword hashes a password for storage. Used by account provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
