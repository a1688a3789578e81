package middleware

import (
	"strings"

	"cms/internal/apperrors"
	"cms/internal/models"
	"cms/internal/services"

	"github.com/gofiber/fiber/v2"
)

// userLocalKey is the Fiber locals key carrying the authenticated user.
const userLocalKey = "auth_user"

// AuthRequired rejects requests without a valid Bearer token before any
// database access happens. The validated identity is stored in locals for
// the handlers.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		user, err := authService.ValidateToken(parts[1])
		if err != nil {
			return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
				"message": apperrors.ClientMessage(err),
			})
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// SessionUser returns the authenticated user stored by AuthRequired, or
// nil when the request is anonymous.
func SessionUser(c *fiber.Ctx) *models.AuthUser {
	user, _ := c.Locals(userLocalKey).(*models.AuthUser)
	return user
}

// OptionalAuth resolves the caller identity when a valid Bearer token is
// present but lets anonymous requests through. Used by the session
// endpoint, which reports `null` for visitors.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if user, err := authService.ValidateToken(parts[1]); err == nil {
				c.Locals(userLocalKey, user)
			}
		}
		return c.Next()
	}
}
