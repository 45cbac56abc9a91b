package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/session"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/usercontext"
)

// IdentityFunc returns the e-mail of the logged-in operator, or "" for
// anonymous requests.
type IdentityFunc func(c *fiber.Ctx) string

// SessionIdentity reads the operator e-mail the login flow stored in the
// session.
func SessionIdentity(c *fiber.Ctx) string {
	return session.GetSessionValue(c, usercontext.KeyEmail)
}

// UserContextMiddleware sets up the user context for every request. Admin
// rights come from the allow-list only, never from the session itself.
func UserContextMiddleware(admins []string, identity IdentityFunc) fiber.Handler {
	if identity == nil {
		identity = SessionIdentity
	}
	allow := make([]string, 0, len(admins))
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			allow = append(allow, a)
		}
	}

	return func(c *fiber.Ctx) error {
		email := strings.ToLower(strings.TrimSpace(identity(c)))
		userCtx := usercontext.UserContext{
			Email:      email,
			IsLoggedIn: email != "",
			IsAdmin:    email != "" && slices.Contains(allow, email),
		}
		c.Locals(usercontext.LocalsKey, userCtx)
		c.Locals(usercontext.KeyLoggedIn, userCtx.IsLoggedIn)
		c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)
		return c.Next()
	}
}
