package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/usercontext"
)

// RequireAdmin ensures a logged-in admin and answers JSON otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !userCtx.IsAdmin {
		log.Warnf("[Auth] Non-admin %s denied access to %s", userCtx.Email, c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

// RequireCronSecret authenticates scheduler calls with the shared secret.
// An empty secret locks the endpoint.
func RequireCronSecret(secret string) fiber.Handler {
	expected := []byte(strings.TrimSpace(secret))
	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			log.Errorf("[Auth] CRON_SECRET is not configured, rejecting %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		provided := extractSecretFromHeader(c)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

func extractSecretFromHeader(c *fiber.Ctx) string {
	secret := strings.TrimSpace(c.Get("X-Cron-Secret"))
	if secret != "" {
		return secret
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
