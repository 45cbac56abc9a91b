package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope(subscriptionEvent(t, "evt_1", EventSubscriptionCreated, "sub_1", "active", baseTime))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", env.EventID)
	assert.Equal(t, EventSubscriptionCreated, env.EventType)
	assert.True(t, env.OccurredAt.Equal(baseTime))
	assert.Equal(t, "ntf_evt_1", env.NotificationID)
}

func TestParseEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `not json`},
		{name: "missing event id", raw: `{"event_type":"subscription.created","occurred_at":"2026-04-01T10:00:00Z","data":{}}`},
		{name: "blank event id", raw: `{"event_id":"  ","event_type":"subscription.created","occurred_at":"2026-04-01T10:00:00Z","data":{}}`},
		{name: "missing event type", raw: `{"event_id":"evt_1","occurred_at":"2026-04-01T10:00:00Z","data":{}}`},
		{name: "missing occurred_at", raw: `{"event_id":"evt_1","event_type":"subscription.created","data":{}}`},
		{name: "bad occurred_at", raw: `{"event_id":"evt_1","event_type":"subscription.created","occurred_at":"yesterday","data":{}}`},
		{name: "missing data", raw: `{"event_id":"evt_1","event_type":"subscription.created","occurred_at":"2026-04-01T10:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.raw))
			assert.True(t, errors.Is(err, ErrInvalidPayload), "got %v", err)
		})
	}
}

func TestSubscriptionStatus(t *testing.T) {
	tests := []struct {
		eventType string
		in        string
		want      string
	}{
		{eventType: EventSubscriptionCreated, in: "active", want: models.BillingStatusActive},
		{eventType: EventSubscriptionUpdated, in: "TRIALING", want: models.BillingStatusTrialing},
		{eventType: EventSubscriptionPastDue, in: "past_due", want: models.BillingStatusPastDue},
		{eventType: EventSubscriptionPaused, in: "paused", want: models.BillingStatusPaused},
		{eventType: EventSubscriptionUpdated, in: "canceled", want: models.BillingStatusCanceled},
		{eventType: EventSubscriptionCanceled, in: "active", want: models.BillingStatusCanceled},
		{eventType: EventSubscriptionUpdated, in: "something_new", want: "something_new"},
	}
	for _, tt := range tests {
		if got := SubscriptionStatus(tt.eventType, tt.in); got != tt.want {
			t.Fatalf("SubscriptionStatus(%q, %q) = %q, want %q", tt.eventType, tt.in, got, tt.want)
		}
	}
}

func TestCustomDataUserID(t *testing.T) {
	assert.Equal(t, uint(42), customDataUserID(map[string]any{"user_id": "42"}))
	assert.Equal(t, uint(7), customDataUserID(map[string]any{"user_id": float64(7)}))
	assert.Equal(t, uint(0), customDataUserID(map[string]any{"user_id": "abc"}))
	assert.Equal(t, uint(0), customDataUserID(map[string]any{"user_id": float64(-1)}))
	assert.Equal(t, uint(0), customDataUserID(nil))
}

func TestSubscriptionPatchFromEvent(t *testing.T) {
	raw := mustJSON(t, map[string]any{
		"event_id":    "evt_1",
		"event_type":  EventSubscriptionUpdated,
		"occurred_at": baseTime.Format(time.RFC3339),
		"data": map[string]any{
			"id":               "sub_1",
			"status":           "active",
			"scheduled_change": map[string]any{"action": "cancel", "effective_at": baseTime.AddDate(0, 1, 0).Format(time.RFC3339)},
		},
	})
	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	sub, err := decodeData[paddleSubscription](env)
	require.NoError(t, err)

	p := sub.patch(env)
	assert.Equal(t, PatchLifecycle, p.Kind)
	assert.Equal(t, "sub_1", p.ProviderSubscriptionID)
	assert.True(t, p.CancelAtPeriodEnd)
	assert.True(t, p.CreateIfMissing)
	assert.Nil(t, p.CurrentPeriodStart)
	assert.Equal(t, "", p.ProviderPlanRef)
}

func TestSubscriptionPatch_CanceledDefaultsCanceledAt(t *testing.T) {
	env, err := ParseEnvelope(subscriptionEvent(t, "evt_2", EventSubscriptionCanceled, "sub_1", "canceled", baseTime))
	require.NoError(t, err)
	sub, err := decodeData[paddleSubscription](env)
	require.NoError(t, err)

	p := sub.patch(env)
	assert.Equal(t, models.BillingStatusCanceled, p.Status)
	require.NotNil(t, p.CanceledAt)
	assert.True(t, p.CanceledAt.Equal(baseTime))
}
