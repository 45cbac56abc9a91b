package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

var validate = validator.New()

// Envelope is the common wrapper of every Paddle notification.
type Envelope struct {
	EventID        string          `json:"event_id" validate:"required"`
	EventType      string          `json:"event_type" validate:"required"`
	OccurredAt     time.Time       `json:"occurred_at" validate:"required"`
	NotificationID string          `json:"notification_id"`
	Data           json.RawMessage `json:"data" validate:"required"`
}

type paddleBillingPeriod struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type paddleScheduledChange struct {
	Action      string     `json:"action"`
	EffectiveAt *time.Time `json:"effective_at"`
}

type paddleItem struct {
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

type paddleSubscription struct {
	ID                   string                 `json:"id" validate:"required"`
	Status               string                 `json:"status" validate:"required"`
	CustomerID           string                 `json:"customer_id"`
	NextBilledAt         *time.Time             `json:"next_billed_at"`
	CanceledAt           *time.Time             `json:"canceled_at"`
	CurrentBillingPeriod *paddleBillingPeriod   `json:"current_billing_period"`
	ScheduledChange      *paddleScheduledChange `json:"scheduled_change"`
	Items                []paddleItem           `json:"items"`
	CustomData           map[string]any         `json:"custom_data"`
}

type paddleTransaction struct {
	ID             string     `json:"id" validate:"required"`
	Status         string     `json:"status"`
	SubscriptionID string     `json:"subscription_id"`
	CustomerID     string     `json:"customer_id"`
	BilledAt       *time.Time `json:"billed_at"`
}

// ParseEnvelope decodes and validates the notification wrapper. Errors wrap
// ErrInvalidPayload.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	env.EventID = strings.TrimSpace(env.EventID)
	env.EventType = strings.TrimSpace(env.EventType)
	if err := validate.Struct(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &env, nil
}

func decodeData[T any](env *Envelope) (*T, error) {
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrInvalidPayload, err)
	}
	return &out, nil
}

// SubscriptionStatus maps a Paddle subscription status to the stored value.
func SubscriptionStatus(eventType, paddleStatus string) string {
	if eventType == EventSubscriptionCanceled {
		return models.BillingStatusCanceled
	}
	switch strings.ToLower(strings.TrimSpace(paddleStatus)) {
	case "active":
		return models.BillingStatusActive
	case "trialing":
		return models.BillingStatusTrialing
	case "past_due":
		return models.BillingStatusPastDue
	case "paused":
		return models.BillingStatusPaused
	case "canceled":
		return models.BillingStatusCanceled
	default:
		return strings.ToLower(strings.TrimSpace(paddleStatus))
	}
}

func (s *paddleSubscription) patch(env *Envelope) SubscriptionPatch {
	p := SubscriptionPatch{
		Kind:                   PatchLifecycle,
		Provider:               ProviderPaddle,
		ProviderSubscriptionID: strings.TrimSpace(s.ID),
		OccurredAt:             env.OccurredAt,
		CreateIfMissing:        true,
		ProviderCustomerID:     strings.TrimSpace(s.CustomerID),
		UserID:                 customDataUserID(s.CustomData),
		Status:                 SubscriptionStatus(env.EventType, s.Status),
		NextBillingDate:        s.NextBilledAt,
		CanceledAt:             s.CanceledAt,
	}
	if len(s.Items) > 0 {
		p.ProviderPlanRef = strings.TrimSpace(s.Items[0].Price.ID)
	}
	if s.CurrentBillingPeriod != nil {
		p.CurrentPeriodStart = s.CurrentBillingPeriod.StartsAt
		p.CurrentPeriodEnd = s.CurrentBillingPeriod.EndsAt
	}
	if s.ScheduledChange != nil && strings.EqualFold(s.ScheduledChange.Action, "cancel") {
		p.CancelAtPeriodEnd = true
	}
	if p.Status == models.BillingStatusCanceled && p.CanceledAt == nil {
		at := env.OccurredAt
		p.CanceledAt = &at
	}
	return p
}

func customDataUserID(data map[string]any) uint {
	raw, ok := data["user_id"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return uint(id)
		}
	}
	return 0
}
