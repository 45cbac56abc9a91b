package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// CronController exposes the retry sweep to an external scheduler.
type CronController struct {
	sweeper   SweepRunner
	batchSize int
}

func NewCronController(sweeper SweepRunner, batchSize int) *CronController {
	return &CronController{sweeper: sweeper, batchSize: batchSize}
}

// HandleWebhookRetry runs one sweep pass.
func (cc *CronController) HandleWebhookRetry(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	res, err := cc.sweeper.Sweep(ctx, cc.batchSize)
	if err != nil && ctx.Err() == nil {
		log.Errorf("[Cron] Webhook retry sweep failed: %v", err)
		return internalError(c)
	}
	return c.Status(fiber.StatusOK).JSON(sweepResponse(res))
}
