package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PaddleSync/app/models"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
)

// ErrAlreadyQueued is returned when the event already has a retry entry.
var ErrAlreadyQueued = errors.New("event already has a retry entry")

// EnqueueInput describes a failed first processing attempt.
type EnqueueInput struct {
	Provider  string
	EventID   string
	EventType string
	Payload   []byte
	Cause     error
}

// Queue creates retry entries for failed events.
type Queue struct {
	store    Store
	policy   Policy
	notifier notify.Notifier
	now      func() time.Time
}

func NewQueue(store Store, policy Policy, notifier notify.Notifier) *Queue {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Queue{store: store, policy: policy, notifier: notifier, now: time.Now}
}

// Enqueue records a pending entry that becomes due after the first backoff
// step.
func (q *Queue) Enqueue(ctx context.Context, in EnqueueInput) (*models.WebhookRetryEntry, error) {
	now := q.now()
	entry := q.newEntry(in)
	entry.Status = models.RetryStatusPending
	entry.NextRetryAt = q.policy.NextRetryAt(now, 0)

	if err := q.create(ctx, entry); err != nil {
		return nil, err
	}
	log.Infof("[RetryQueue] Queued %s event %s, next attempt at %s", entry.EventType, entry.EventID, entry.NextRetryAt.Format(time.RFC3339))
	return entry, nil
}

// EnqueueExhausted records an entry that is failed from the start, for
// events that can never succeed. A critical alert is sent once the entry
// exists.
func (q *Queue) EnqueueExhausted(ctx context.Context, in EnqueueInput) (*models.WebhookRetryEntry, error) {
	now := q.now()
	entry := q.newEntry(in)
	entry.Status = models.RetryStatusFailed
	entry.NextRetryAt = now
	entry.CompletedAt = &now

	if err := q.create(ctx, entry); err != nil {
		return nil, err
	}
	log.Warnf("[RetryQueue] Event %s (%s) failed permanently: %s", entry.EventID, entry.EventType, entry.LastError)

	alert := exhaustedAlert(entry, notify.ActionPermanentFailure, "Webhook event failed permanently")
	if err := q.notifier.Notify(ctx, alert); err != nil {
		log.Errorf("[RetryQueue] Failed to send permanent failure alert for %s: %v", entry.EventID, err)
	}
	return entry, nil
}

// List returns retry entries for the admin view.
func (q *Queue) List(ctx context.Context, filter ListFilter) ([]models.WebhookRetryEntry, int64, error) {
	return q.store.List(ctx, filter)
}

// CountByStatus returns the number of entries per status.
func (q *Queue) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return q.store.CountByStatus(ctx)
}

func (q *Queue) newEntry(in EnqueueInput) *models.WebhookRetryEntry {
	lastError := ""
	if in.Cause != nil {
		lastError = in.Cause.Error()
	}
	return &models.WebhookRetryEntry{
		ID:          uuid.NewString(),
		Provider:    strings.ToLower(strings.TrimSpace(in.Provider)),
		EventID:     strings.TrimSpace(in.EventID),
		EventType:   strings.TrimSpace(in.EventType),
		PayloadJSON: string(in.Payload),
		RetryCount:  0,
		MaxRetries:  q.policy.MaxRetries,
		LastError:   lastError,
	}
}

func (q *Queue) create(ctx context.Context, entry *models.WebhookRetryEntry) error {
	if entry.Provider == "" || entry.EventID == "" {
		return errors.New("provider and event id are required")
	}
	created, err := q.store.Create(ctx, entry)
	if err != nil {
		return fmt.Errorf("create retry entry for %s: %w", entry.EventID, err)
	}
	if !created {
		return ErrAlreadyQueued
	}
	return nil
}

func exhaustedAlert(entry *models.WebhookRetryEntry, action, title string) notify.Alert {
	return notify.Alert{
		Severity:   notify.SeverityCritical,
		Action:     action,
		Title:      title,
		Message:    entry.LastError,
		TargetType: "webhook_event",
		TargetID:   entry.EventID,
		Fields: map[string]string{
			"provider":    entry.Provider,
			"event_type":  entry.EventType,
			"retry_entry": entry.ID,
			"retry_count": strconv.Itoa(entry.RetryCount),
		},
	}
}
