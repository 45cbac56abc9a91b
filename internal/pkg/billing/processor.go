package billing

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PaddleSync/app/models"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
)

// SubscriptionStore is the persistence the processor writes to.
type SubscriptionStore interface {
	ApplySubscriptionPatch(ctx context.Context, patch SubscriptionPatch) (bool, error)
}

// Counter increments a named daily counter at most once per idempotency key.
type Counter interface {
	IncrementOnce(ctx context.Context, name, idempotencyKey string, at time.Time) (bool, error)
}

// Processor applies verified webhook events to subscription state. Applying
// the same event any number of times leaves the same state behind.
type Processor struct {
	store    SubscriptionStore
	counter  Counter
	notifier notify.Notifier
}

func NewProcessor(store SubscriptionStore, counter Counter, notifier notify.Notifier) *Processor {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Processor{store: store, counter: counter, notifier: notifier}
}

// Process applies one event. Failures are returned as *ProcessingError;
// undecodable payloads are marked permanent.
func (p *Processor) Process(ctx context.Context, eventType string, payload []byte) error {
	env, err := ParseEnvelope(payload)
	if err != nil {
		return &ProcessingError{EventType: eventType, Cause: Permanent(err)}
	}
	if eventType == "" {
		eventType = env.EventType
	}
	env.EventType = eventType

	if err := p.dispatch(ctx, eventType, env); err != nil {
		return &ProcessingError{EventID: env.EventID, EventType: eventType, Cause: err}
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, eventType string, env *Envelope) error {
	switch eventType {
	case EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionActivated,
		EventSubscriptionTrialing,
		EventSubscriptionPastDue,
		EventSubscriptionPaused,
		EventSubscriptionResumed,
		EventSubscriptionCanceled:
		return p.handleSubscription(ctx, eventType, env)
	case EventTransactionCompleted, EventTransactionPaid:
		return p.handlePayment(ctx, env, models.PaymentStatusSucceeded)
	case EventTransactionPaymentFailed:
		return p.handlePayment(ctx, env, models.PaymentStatusFailed)
	default:
		log.Infof("[BillingProcessor] Ignoring unhandled event type %s (%s)", eventType, env.EventID)
		return nil
	}
}

func (p *Processor) handleSubscription(ctx context.Context, eventType string, env *Envelope) error {
	sub, err := decodeData[paddleSubscription](env)
	if err != nil {
		return Permanent(err)
	}
	patch := sub.patch(env)

	applied, err := p.store.ApplySubscriptionPatch(ctx, patch)
	if err != nil {
		return err
	}
	if !applied {
		log.Debugf("[BillingProcessor] Skipped stale %s for subscription %s", eventType, patch.ProviderSubscriptionID)
	}

	switch eventType {
	case EventSubscriptionCreated:
		return p.increment(ctx, CounterSubscriptionsCreated, env)
	case EventSubscriptionCanceled:
		return p.increment(ctx, CounterSubscriptionsCanceled, env)
	}
	return nil
}

func (p *Processor) handlePayment(ctx context.Context, env *Envelope, paymentStatus string) error {
	tx, err := decodeData[paddleTransaction](env)
	if err != nil {
		return Permanent(err)
	}
	subscriptionID := strings.TrimSpace(tx.SubscriptionID)
	if subscriptionID == "" {
		log.Infof("[BillingProcessor] Transaction %s has no subscription, nothing to apply", tx.ID)
		return nil
	}

	paidAt := env.OccurredAt
	if tx.BilledAt != nil && paymentStatus == models.PaymentStatusSucceeded {
		paidAt = *tx.BilledAt
	}
	patch := SubscriptionPatch{
		Kind:                   PatchPayment,
		Provider:               ProviderPaddle,
		ProviderSubscriptionID: subscriptionID,
		OccurredAt:             env.OccurredAt,
		LastPaymentStatus:      paymentStatus,
		LastPaymentAt:          &paidAt,
		LastTransactionID:      strings.TrimSpace(tx.ID),
	}
	if _, err := p.store.ApplySubscriptionPatch(ctx, patch); err != nil {
		// The subscription may still be on its way; retry later.
		return err
	}

	if paymentStatus == models.PaymentStatusSucceeded {
		return p.increment(ctx, CounterPaymentsSucceeded, env)
	}

	if err := p.increment(ctx, CounterPaymentsFailed, env); err != nil {
		return err
	}
	alert := notify.Alert{
		Severity:   notify.SeverityWarning,
		Action:     notify.ActionPaymentFailed,
		Title:      "Subscription payment failed",
		Message:    "Paddle reported a failed payment for subscription " + subscriptionID,
		TargetType: "subscription",
		TargetID:   subscriptionID,
		Fields: map[string]string{
			"event_id":       env.EventID,
			"transaction_id": tx.ID,
		},
	}
	if err := p.notifier.Notify(ctx, alert); err != nil {
		log.Warnf("[BillingProcessor] Failed to send payment failure notification for %s: %v", env.EventID, err)
	}
	return nil
}

func (p *Processor) increment(ctx context.Context, name string, env *Envelope) error {
	if p.counter == nil {
		return nil
	}
	if _, err := p.counter.IncrementOnce(ctx, name, env.EventID, env.OccurredAt); err != nil {
		return err
	}
	return nil
}
