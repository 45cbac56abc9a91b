package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PaddleSync/app/models"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/retryqueue"
)

// Verifier checks a delivery signature.
type Verifier interface {
	Verify(rawBody []byte, header string) (bool, error)
}

// EventProcessor applies one event; *Processor is the implementation.
type EventProcessor interface {
	Process(ctx context.Context, eventType string, payload []byte) error
}

// RetryEnqueuer hands failed events to the retry queue.
type RetryEnqueuer interface {
	Enqueue(ctx context.Context, in retryqueue.EnqueueInput) (*models.WebhookRetryEntry, error)
	EnqueueExhausted(ctx context.Context, in retryqueue.EnqueueInput) (*models.WebhookRetryEntry, error)
}

// Service runs inbound webhook deliveries through verification, the event
// store, the processor and, on failure, the retry queue.
type Service struct {
	repo      Repository
	verifiers map[string]Verifier
	processor EventProcessor
	retries   RetryEnqueuer
	notifier  notify.Notifier
	now       func() time.Time
}

// NewService creates the webhook pipeline. verifiers is keyed by provider.
func NewService(repo Repository, verifiers map[string]Verifier, processor EventProcessor, retries RetryEnqueuer, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Service{
		repo:      repo,
		verifiers: verifiers,
		processor: processor,
		retries:   retries,
		notifier:  notifier,
		now:       time.Now,
	}
}

// HandleDelivery processes one inbound delivery.
//
// ErrUnknownProvider, ErrInvalidSignature and ErrInvalidPayload reject the
// delivery before anything is written. Every other error means the event
// could not be recorded or queued and the provider should redeliver.
func (s *Service) HandleDelivery(ctx context.Context, d Delivery) (DeliveryResult, error) {
	provider := strings.ToLower(strings.TrimSpace(d.Provider))
	verifier, ok := s.verifiers[provider]
	if !ok {
		return DeliveryResult{}, ErrUnknownProvider
	}

	valid, err := verifier.Verify(d.RawBody, d.Signature)
	if err != nil {
		log.Errorf("[Webhook] Signature verification unavailable for %s: %v", provider, err)
		return DeliveryResult{}, err
	}
	if !valid {
		log.Warnf("[Webhook] Rejected %s delivery with invalid signature", provider)
		return DeliveryResult{}, ErrInvalidSignature
	}

	env, err := ParseEnvelope(d.RawBody)
	if err != nil {
		log.Warnf("[Webhook] Rejected %s delivery: %v", provider, err)
		return DeliveryResult{}, err
	}
	result := DeliveryResult{EventID: env.EventID, EventType: env.EventType}

	occurredAt := env.OccurredAt
	created, _, err := s.RecordEvent(ctx, EventInput{
		Provider:    provider,
		EventID:     env.EventID,
		EventType:   env.EventType,
		PayloadJSON: string(d.RawBody),
		OccurredAt:  &occurredAt,
	})
	if err != nil {
		return result, fmt.Errorf("record event %s: %w", env.EventID, err)
	}
	if !created {
		log.Debugf("[Webhook] Duplicate %s delivery %s ignored", provider, env.EventID)
		result.Duplicate = true
		return result, nil
	}

	procErr := s.processor.Process(ctx, env.EventType, d.RawBody)
	ctx, cancel := retryqueue.SettleContext(ctx)
	defer cancel()
	if err := s.MarkOutcome(ctx, provider, env.EventID, procErr); err != nil {
		log.Errorf("[Webhook] Failed to record outcome of %s: %v", env.EventID, err)
	}
	if procErr == nil {
		result.Processed = true
		return result, nil
	}

	log.Warnf("[Webhook] Processing of %s (%s) failed, queueing retry: %v", env.EventID, env.EventType, procErr)
	in := retryqueue.EnqueueInput{
		Provider:  provider,
		EventID:   env.EventID,
		EventType: env.EventType,
		Payload:   d.RawBody,
		Cause:     procErr,
	}
	if IsPermanent(procErr) {
		_, err = s.retries.EnqueueExhausted(ctx, in)
	} else {
		_, err = s.retries.Enqueue(ctx, in)
	}
	if err != nil && !errors.Is(err, retryqueue.ErrAlreadyQueued) {
		s.alertEnqueueFailed(ctx, provider, env, procErr, err)
		return result, fmt.Errorf("enqueue retry for %s: %w", env.EventID, err)
	}
	result.Queued = true
	return result, nil
}

// RecordEvent stores the event unless it was seen before. It reports
// whether this call created the record. Events without an id are keyed by
// the hash of their payload.
func (s *Service) RecordEvent(ctx context.Context, in EventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:    provider,
		EventID:     eventID,
		EventType:   strings.TrimSpace(in.EventType),
		PayloadJSON: in.PayloadJSON,
		OccurredAt:  in.OccurredAt,
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkOutcome records the result of the first processing attempt.
func (s *Service) MarkOutcome(ctx context.Context, provider, eventID string, processingErr error) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	status := models.WebhookEventStatusSuccess
	errMsg := ""
	if processingErr != nil {
		status = models.WebhookEventStatusFailed
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, strings.ToLower(provider), eventID, status, errMsg, s.now())
}

// ListEvents returns recorded events for the audit view, newest first.
func (s *Service) ListEvents(ctx context.Context, filter EventFilter) ([]models.BillingWebhookEvent, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultEventListLimit
	}
	if filter.Limit > MaxEventListLimit {
		filter.Limit = MaxEventListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListWebhookEvents(ctx, filter)
}

func (s *Service) alertEnqueueFailed(ctx context.Context, provider string, env *Envelope, procErr, enqueueErr error) {
	alert := notify.Alert{
		Severity:   notify.SeverityCritical,
		Action:     notify.ActionEnqueueFailed,
		Title:      "Failed webhook event could not be queued for retry",
		Message:    enqueueErr.Error(),
		TargetType: "webhook_event",
		TargetID:   env.EventID,
		Fields: map[string]string{
			"provider":         provider,
			"event_type":       env.EventType,
			"processing_error": procErr.Error(),
		},
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		log.Errorf("[Webhook] Failed to send enqueue failure alert for %s: %v", env.EventID, err)
	}
}
