package models

import "time"

const (
	RetryStatusPending   = "pending"
	RetryStatusSucceeded = "succeeded"
	RetryStatusFailed    = "failed"
)

// WebhookRetryEntry is a pending or terminal re-attempt of a webhook event
// whose first processing attempt failed. Failed means exhausted.
type WebhookRetryEntry struct {
	ID          string     `gorm:"type:char(36);primaryKey" json:"id"`
	Provider    string     `gorm:"type:varchar(20);not null;index:ux_webhook_retry_entries_provider_event,unique,priority:1" json:"provider"`
	EventID     string     `gorm:"type:varchar(191);not null;index:ux_webhook_retry_entries_provider_event,unique,priority:2" json:"event_id"`
	EventType   string     `gorm:"type:varchar(100);not null" json:"event_type"`
	PayloadJSON string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status      string     `gorm:"type:varchar(16);not null;default:'pending';index:idx_webhook_retry_entries_due,priority:1" json:"status"`
	RetryCount  int        `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries  int        `gorm:"not null;default:5" json:"max_retries"`
	NextRetryAt time.Time  `gorm:"type:datetime(6);not null;index:idx_webhook_retry_entries_due,priority:2" json:"next_retry_at"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	ClaimedAt   *time.Time `gorm:"type:datetime(6);default:null" json:"claimed_at,omitempty"`
	ClaimToken  string     `gorm:"type:varchar(36);not null;default:''" json:"-"`
	CompletedAt *time.Time `gorm:"type:datetime(6);default:null" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the entry left the pending state for good.
func (e *WebhookRetryEntry) IsTerminal() bool {
	return e.Status == RetryStatusSucceeded || e.Status == RetryStatusFailed
}

// IsDue reports whether a pending entry may be attempted at now.
func (e *WebhookRetryEntry) IsDue(now time.Time) bool {
	return e.Status == RetryStatusPending && !e.NextRetryAt.After(now)
}
