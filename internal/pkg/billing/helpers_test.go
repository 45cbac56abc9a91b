package billing

import (
	"encoding/json"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func subscriptionEvent(t *testing.T, eventID, eventType, subID, status string, occurredAt time.Time) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{
		"event_id":        eventID,
		"event_type":      eventType,
		"occurred_at":     occurredAt.Format(time.RFC3339Nano),
		"notification_id": "ntf_" + eventID,
		"data": map[string]any{
			"id":          subID,
			"status":      status,
			"customer_id": "ctm_1",
			"current_billing_period": map[string]any{
				"starts_at": baseTime.Format(time.RFC3339),
				"ends_at":   baseTime.AddDate(0, 1, 0).Format(time.RFC3339),
			},
			"next_billed_at": baseTime.AddDate(0, 1, 0).Format(time.RFC3339),
			"items": []any{
				map[string]any{"price": map[string]any{"id": "pri_pro_monthly"}},
			},
			"custom_data": map[string]any{"user_id": "42"},
		},
	})
}

func transactionEvent(t *testing.T, eventID, eventType, txID, subID string, occurredAt time.Time) []byte {
	t.Helper()
	data := map[string]any{
		"id":          txID,
		"status":      "completed",
		"customer_id": "ctm_1",
		"billed_at":   occurredAt.Format(time.RFC3339),
	}
	if subID != "" {
		data["subscription_id"] = subID
	} else {
		data["subscription_id"] = nil
	}
	return mustJSON(t, map[string]any{
		"event_id":    eventID,
		"event_type":  eventType,
		"occurred_at": occurredAt.Format(time.RFC3339Nano),
		"data":        data,
	})
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
