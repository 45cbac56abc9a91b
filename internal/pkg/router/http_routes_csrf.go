package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/usercontext"
)

// CSRFHeader carries the token on unsafe admin requests and exposes it on
// safe ones.
const CSRFHeader = "X-CSRF-Token"

func (h HttpRouter) csrfMiddleware() fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:" + CSRFHeader,
		ContextKey:     usercontext.KeyCSRF,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		Expiration:     1 * time.Hour,
		CookieSecure:   !h.deps.Config.IsDev(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "forbidden",
				"message": "invalid csrf token",
			})
		},
	})
}

// exposeCSRFToken hands the current token to API clients of the admin routes.
func exposeCSRFToken(c *fiber.Ctx) error {
	if token, ok := c.Locals(usercontext.KeyCSRF).(string); ok && token != "" {
		c.Set(CSRFHeader, token)
	}
	return c.Next()
}
