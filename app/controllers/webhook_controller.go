package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/billing"
)

// SignatureHeader carries the provider signature of a delivery.
const SignatureHeader = "Paddle-Signature"

// WebhookIngester runs a delivery through the pipeline; *billing.Service is
// the implementation.
type WebhookIngester interface {
	HandleDelivery(ctx context.Context, d billing.Delivery) (billing.DeliveryResult, error)
}

// WebhookController receives provider webhooks.
type WebhookController struct {
	ingester WebhookIngester
}

func NewWebhookController(ingester WebhookIngester) *WebhookController {
	return &WebhookController{ingester: ingester}
}

// HandleWebhook accepts one delivery. Responses never carry internal details.
func (wc *WebhookController) HandleWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := requestContext()
	defer cancel()

	result, err := wc.ingester.HandleDelivery(ctx, billing.Delivery{
		Provider:  provider,
		RawBody:   rawBody,
		Signature: strings.TrimSpace(c.Get(SignatureHeader)),
	})
	switch {
	case err == nil:
	case errors.Is(err, billing.ErrUnknownProvider):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_provider"})
	case errors.Is(err, billing.ErrInvalidSignature):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	case errors.Is(err, billing.ErrInvalidPayload):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	default:
		log.Errorf("[Webhook] %s delivery %s failed: %v", provider, result.EventID, err)
		return internalError(c)
	}

	if result.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if result.Queued {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "queued": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
