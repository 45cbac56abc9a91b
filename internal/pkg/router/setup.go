package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PaddleSync/app/controllers"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the controllers and storages the routers are built from.
// Nil storages fall back to in-memory storage.
type Dependencies struct {
	Config         *config.Config
	Webhooks       *controllers.WebhookController
	Admin          *controllers.AdminWebhookController
	Cron           *controllers.CronController
	SessionStorage fiber.Storage
	LimiterStorage fiber.Storage
	Identity       middleware.IdentityFunc
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewWebhookRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
