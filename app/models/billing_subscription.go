package models

import "time"

const (
	BillingStatusActive   = "active"
	BillingStatusTrialing = "trialing"
	BillingStatusPastDue  = "past_due"
	BillingStatusCanceled = "canceled"
	BillingStatusPaused   = "paused"
)

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// BillingSubscription mirrors a provider subscription. It is written only by
// the webhook event processor.
//
// StatusEventAt and BillingEventAt hold the provider timestamp of the newest
// event applied to the lifecycle fields and to the payment fields. Updates
// carrying an older timestamp are ignored.
type BillingSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Provider               string     `gorm:"type:varchar(20);not null;index:ux_billing_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;index:ux_billing_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);not null;default:'';index" json:"provider_customer_id"`
	UserID                 uint       `gorm:"not null;default:0;index" json:"user_id"`
	ProviderPlanRef        string     `gorm:"type:varchar(191);not null;default:''" json:"provider_plan_ref"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'';index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:datetime(6);default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:datetime(6);default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	NextBillingDate        *time.Time `gorm:"type:datetime(6);default:null" json:"next_billing_date,omitempty"`
	CanceledAt             *time.Time `gorm:"type:datetime(6);default:null" json:"canceled_at,omitempty"`
	LastPaymentStatus      string     `gorm:"type:varchar(16);not null;default:''" json:"last_payment_status"`
	LastPaymentAt          *time.Time `gorm:"type:datetime(6);default:null" json:"last_payment_at,omitempty"`
	LastTransactionID      string     `gorm:"type:varchar(191);not null;default:''" json:"last_transaction_id"`
	StatusEventAt          *time.Time `gorm:"type:datetime(6);default:null" json:"status_event_at,omitempty"`
	BillingEventAt         *time.Time `gorm:"type:datetime(6);default:null" json:"billing_event_at,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
