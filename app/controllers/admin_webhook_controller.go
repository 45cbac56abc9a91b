package controllers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PaddleSync/app/models"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/retryqueue"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/usercontext"
)

// EventLister reads the webhook audit trail.
type EventLister interface {
	ListEvents(ctx context.Context, filter billing.EventFilter) ([]models.BillingWebhookEvent, int64, error)
}

// RetryLister reads the retry queue.
type RetryLister interface {
	List(ctx context.Context, filter retryqueue.ListFilter) ([]models.WebhookRetryEntry, int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// DailyCounter reads the per-day billing counters.
type DailyCounter interface {
	DailyCounts(ctx context.Context, day time.Time) (map[string]int64, error)
}

// AdminWebhookController handles the operator views of the webhook pipeline.
type AdminWebhookController struct {
	events    EventLister
	retries   RetryLister
	sweeper   SweepRunner
	counters  DailyCounter
	notifier  notify.Notifier
	batchSize int
	now       func() time.Time
}

func NewAdminWebhookController(events EventLister, retries RetryLister, sweeper SweepRunner, counters DailyCounter, notifier notify.Notifier, batchSize int) *AdminWebhookController {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &AdminWebhookController{
		events:    events,
		retries:   retries,
		sweeper:   sweeper,
		counters:  counters,
		notifier:  notifier,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// HandleListEvents returns recorded webhook events, newest first.
func (ac *AdminWebhookController) HandleListEvents(c *fiber.Ctx) error {
	filter := billing.EventFilter{
		Provider:  strings.ToLower(strings.TrimSpace(c.Query("provider"))),
		Status:    strings.TrimSpace(c.Query("status")),
		EventType: strings.TrimSpace(c.Query("type")),
	}
	var err error
	if filter.From, err = parseTimeQuery(c, "from", false); err != nil {
		return invalidFilter(c, err)
	}
	if filter.To, err = parseTimeQuery(c, "to", true); err != nil {
		return invalidFilter(c, err)
	}
	if filter.Limit, err = parseIntQuery(c, "limit"); err != nil {
		return invalidFilter(c, err)
	}
	if filter.Offset, err = parseIntQuery(c, "offset"); err != nil {
		return invalidFilter(c, err)
	}

	ctx, cancel := requestContext()
	defer cancel()

	events, total, err := ac.events.ListEvents(ctx, filter)
	if err != nil {
		log.Errorf("[Admin] Failed to list webhook events: %v", err)
		return internalError(c)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"events": events, "total": total})
}

// HandleRetry runs one sweep on behalf of an admin and records who did it.
func (ac *AdminWebhookController) HandleRetry(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	res, err := ac.sweeper.Sweep(ctx, ac.batchSize)
	if err != nil && ctx.Err() == nil {
		log.Errorf("[Admin] Manual webhook retry failed: %v", err)
		return internalError(c)
	}

	actor := usercontext.Actor(c)
	alert := notify.Alert{
		Severity:   notify.SeverityInfo,
		Action:     notify.ActionManualRetry,
		Actor:      actor,
		Title:      "Manual webhook retry sweep",
		TargetType: "webhook_retry_queue",
		Fields: map[string]string{
			"succeeded": strconv.Itoa(res.Succeeded),
			"failed":    strconv.Itoa(res.Rescheduled),
			"exhausted": strconv.Itoa(res.Exhausted),
			"skipped":   strconv.Itoa(res.Skipped),
		},
	}
	if err := ac.notifier.Notify(ctx, alert); err != nil {
		log.Errorf("[Admin] Failed to audit manual retry by %s: %v", actor, err)
	}
	return c.Status(fiber.StatusOK).JSON(sweepResponse(res))
}

// HandleRetryQueue lists retry entries, optionally by status.
func (ac *AdminWebhookController) HandleRetryQueue(c *fiber.Ctx) error {
	filter := retryqueue.ListFilter{Status: strings.TrimSpace(c.Query("status"))}
	switch filter.Status {
	case "", models.RetryStatusPending, models.RetryStatusSucceeded, models.RetryStatusFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_filter", "message": "unknown status"})
	}
	var err error
	if filter.Limit, err = parseIntQuery(c, "limit"); err != nil {
		return invalidFilter(c, err)
	}
	if filter.Limit == 0 || filter.Limit > billing.MaxEventListLimit {
		filter.Limit = billing.DefaultEventListLimit
	}
	if filter.Offset, err = parseIntQuery(c, "offset"); err != nil {
		return invalidFilter(c, err)
	}

	ctx, cancel := requestContext()
	defer cancel()

	entries, total, err := ac.retries.List(ctx, filter)
	if err != nil {
		log.Errorf("[Admin] Failed to list retry entries: %v", err)
		return internalError(c)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"entries": entries, "total": total})
}

// HandleStats reports today's billing counters and the retry queue size.
func (ac *AdminWebhookController) HandleStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	day := ac.now().UTC()
	counts, err := ac.counters.DailyCounts(ctx, day)
	if err != nil {
		log.Errorf("[Admin] Failed to read daily counters: %v", err)
		return internalError(c)
	}
	queue, err := ac.retries.CountByStatus(ctx)
	if err != nil {
		log.Errorf("[Admin] Failed to count retry entries: %v", err)
		return internalError(c)
	}

	counters := fiber.Map{}
	for _, name := range []string{
		billing.CounterSubscriptionsCreated,
		billing.CounterSubscriptionsCanceled,
		billing.CounterPaymentsSucceeded,
		billing.CounterPaymentsFailed,
	} {
		counters[name] = counts[name]
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"date":        day.Format(time.DateOnly),
		"counters":    counters,
		"retry_queue": queue,
	})
}
