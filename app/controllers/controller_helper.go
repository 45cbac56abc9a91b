package controllers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/retryqueue"
)

// requestTimeout bounds the work a single request may trigger.
const requestTimeout = 15 * time.Second

// SweepRunner runs one retry sweep; *retryqueue.Sweeper is the implementation.
type SweepRunner interface {
	Sweep(ctx context.Context, batchSize int) (retryqueue.SweepResult, error)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func sweepResponse(res retryqueue.SweepResult) fiber.Map {
	return fiber.Map{
		"succeeded": res.Succeeded,
		"failed":    res.Rescheduled,
		"exhausted": res.Exhausted,
		"skipped":   res.Skipped,
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
}

func invalidFilter(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_filter", "message": err.Error()})
}

// parseTimeQuery accepts RFC3339 or a plain date. A plain date used as an
// upper bound covers the whole day.
func parseTimeQuery(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC3339 or YYYY-MM-DD", key)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func parseIntQuery(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
