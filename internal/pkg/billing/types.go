package billing

import (
	"time"
)

// ProviderPaddle is the only billing provider whose webhooks are accepted.
const ProviderPaddle = "paddle"

// Paddle event types handled by the processor.
const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionTrialing  = "subscription.trialing"
	EventSubscriptionPastDue   = "subscription.past_due"
	EventSubscriptionPaused    = "subscription.paused"
	EventSubscriptionResumed   = "subscription.resumed"
	EventSubscriptionCanceled  = "subscription.canceled"

	EventTransactionCompleted     = "transaction.completed"
	EventTransactionPaid          = "transaction.paid"
	EventTransactionPaymentFailed = "transaction.payment_failed"
)

// Daily counters maintained by the processor.
const (
	CounterSubscriptionsCreated  = "subscriptions_created"
	CounterSubscriptionsCanceled = "subscriptions_canceled"
	CounterPaymentsSucceeded     = "payments_succeeded"
	CounterPaymentsFailed        = "payments_failed"
)

// EventInput is the normalized input for webhook event persistence.
type EventInput struct {
	Provider    string
	EventID     string
	EventType   string
	PayloadJSON string
	OccurredAt  *time.Time
}

// Delivery is one inbound webhook request as received on the wire.
type Delivery struct {
	Provider  string
	RawBody   []byte
	Signature string
}

// DeliveryResult describes how a verified delivery was handled.
type DeliveryResult struct {
	EventID   string
	EventType string
	Duplicate bool
	Processed bool
	Queued    bool
}

// EventFilter narrows the audit listing of recorded webhook events.
type EventFilter struct {
	Provider  string
	Status    string
	EventType string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

const (
	DefaultEventListLimit = 50
	MaxEventListLimit     = 200
)

// PatchKind selects which group of subscription fields a patch writes and
// which event timestamp guards the write.
type PatchKind int

const (
	PatchLifecycle PatchKind = iota + 1
	PatchPayment
)

// SubscriptionPatch is an absolute state update for one subscription. Only
// the fields belonging to Kind are written.
type SubscriptionPatch struct {
	Kind                   PatchKind
	Provider               string
	ProviderSubscriptionID string
	OccurredAt             time.Time
	CreateIfMissing        bool

	ProviderCustomerID string
	UserID             uint
	ProviderPlanRef    string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	NextBillingDate    *time.Time
	CanceledAt         *time.Time

	LastPaymentStatus string
	LastPaymentAt     *time.Time
	LastTransactionID string
}
