package models

import "time"

const (
	WebhookEventStatusSuccess = "success"
	WebhookEventStatusFailed  = "failed"
)

// BillingWebhookEvent stores provider webhook payloads with deduplication
// metadata for idempotent processing. Rows are never deleted.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	EventID         string     `gorm:"type:varchar(191);not null;index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	OccurredAt      *time.Time `gorm:"type:datetime(6);default:null;index" json:"occurred_at,omitempty"`
	ProcessedAt     *time.Time `gorm:"type:datetime(6);default:null" json:"processed_at,omitempty"`
	Status          string     `gorm:"type:varchar(16);not null;default:'';index" json:"status"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsSettled reports whether the processor already reported an outcome.
func (e *BillingWebhookEvent) IsSettled() bool {
	return e.Status == WebhookEventStatusSuccess || e.Status == WebhookEventStatusFailed
}
