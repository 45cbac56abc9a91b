package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the operator behind a request
type UserContext struct {
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(LocalsKey).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// Actor names the user for audit records.
func Actor(c *fiber.Ctx) string {
	if email := GetUserContext(c).Email; email != "" {
		return email
	}
	return "anonymous"
}
