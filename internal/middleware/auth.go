package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lovingyourskin/commerce-api/internal/service"
)

// TokenValidator validates bearer tokens for the admin surface.
type TokenValidator interface {
	ValidateToken(token string) (*service.AdminClaims, error)
}

// Locals keys set by RequireAdmin.
const (
	LocalsAdminEmail = "adminEmail"
	LocalsAdminRole  = "adminRole"
)

// RequireAdmin guards admin routes with a bearer token check. The verified
// claims land in locals for downstream handlers.
func RequireAdmin(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "malformed authorization header"})
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(LocalsAdminEmail, claims.Email)
		c.Locals(LocalsAdminRole, claims.Role)
		return c.Next()
	}
}
