package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin",
		middleware.UserContextMiddleware(h.deps.Config.Admin.Emails, h.deps.Identity),
		middleware.RequireAdmin,
		h.csrfMiddleware(),
		exposeCSRFToken,
	)

	// Webhook pipeline
	adminGroup.Get("/webhooks", h.deps.Admin.HandleListEvents)
	adminGroup.Post("/webhooks/retry", h.deps.Admin.HandleRetry)
	adminGroup.Get("/webhooks/retry-queue", h.deps.Admin.HandleRetryQueue)
	adminGroup.Get("/webhooks/stats", h.deps.Admin.HandleStats)

	// Process monitor
	adminGroup.Get("/monitor", monitor.New(monitor.Config{Title: "PaddleSync Monitor"}))
}
