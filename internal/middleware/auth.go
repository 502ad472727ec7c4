package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/auth"
)

// UserIDKey is where JWTAuth stores the resolved caller identity in locals.
const UserIDKey = "user_id"

func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		claims, err := auth.ParseAndValidateToken(secret, token)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}

// CallerID returns the authenticated user id set by JWTAuth.
func CallerID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
