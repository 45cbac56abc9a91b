package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

// Repository provides the persistence used by the event store and the
// event processor.
type Repository interface {
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, provider, eventID, status, processingError string, processedAt time.Time) error
	ListWebhookEvents(ctx context.Context, filter EventFilter) ([]models.BillingWebhookEvent, int64, error)
	ApplySubscriptionPatch(ctx context.Context, patch SubscriptionPatch) (bool, error)
	GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.BillingSubscription, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkWebhookProcessed records the outcome once. Events that already carry
// an outcome are left untouched.
func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, provider, eventID, status, processingError string, processedAt time.Time) error {
	updates := map[string]interface{}{
		"status":           status,
		"processed_at":     processedAt,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).
		Where("provider = ? AND event_id = ? AND status = ?", provider, eventID, "").
		Updates(updates).Error
}

func (r *gormRepository) ListWebhookEvents(ctx context.Context, filter EventFilter) ([]models.BillingWebhookEvent, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{})
	if filter.Provider != "" {
		q = q.Where("provider = ?", filter.Provider)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.BillingWebhookEvent
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&events).Error
	return events, total, err
}

// ApplySubscriptionPatch writes the patch with a per-row guard on the event
// timestamp of the patched field group. It reports whether the row changed.
// A patch that may not create and finds no row returns ErrSubscriptionNotFound.
func (r *gormRepository) ApplySubscriptionPatch(ctx context.Context, patch SubscriptionPatch) (bool, error) {
	db := r.db.WithContext(ctx)

	if patch.CreateIfMissing {
		row := patch.newRecord()
		tx := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "provider_subscription_id"},
			},
			DoNothing: true,
		}).Create(row)
		if tx.Error != nil {
			return false, tx.Error
		}
		if tx.RowsAffected > 0 {
			return true, nil
		}
	}

	guard := patch.guardColumn()
	res := db.Model(&models.BillingSubscription{}).
		Where("provider = ? AND provider_subscription_id = ?", patch.Provider, patch.ProviderSubscriptionID).
		Where("("+guard+" IS NULL OR "+guard+" <= ?)", patch.OccurredAt).
		Updates(patch.updates())
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&models.BillingSubscription{}).
		Where("provider = ? AND provider_subscription_id = ?", patch.Provider, patch.ProviderSubscriptionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrSubscriptionNotFound
	}
	return false, nil
}

func (r *gormRepository) GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.BillingSubscription, error) {
	var sub models.BillingSubscription
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (p SubscriptionPatch) guardColumn() string {
	if p.Kind == PatchPayment {
		return "billing_event_at"
	}
	return "status_event_at"
}

func (p SubscriptionPatch) updates() map[string]interface{} {
	at := p.OccurredAt
	if p.Kind == PatchPayment {
		return map[string]interface{}{
			"last_payment_status": p.LastPaymentStatus,
			"last_payment_at":     p.LastPaymentAt,
			"last_transaction_id": p.LastTransactionID,
			"billing_event_at":    at,
		}
	}
	updates := map[string]interface{}{
		"status":               p.Status,
		"current_period_start": p.CurrentPeriodStart,
		"current_period_end":   p.CurrentPeriodEnd,
		"cancel_at_period_end": p.CancelAtPeriodEnd,
		"next_billing_date":    p.NextBillingDate,
		"canceled_at":          p.CanceledAt,
		"status_event_at":      at,
	}
	// Identity fields are only overwritten when the event carries them.
	if p.ProviderCustomerID != "" {
		updates["provider_customer_id"] = p.ProviderCustomerID
	}
	if p.UserID != 0 {
		updates["user_id"] = p.UserID
	}
	if p.ProviderPlanRef != "" {
		updates["provider_plan_ref"] = p.ProviderPlanRef
	}
	return updates
}

// apply copies the patched field group onto sub.
func (p SubscriptionPatch) apply(sub *models.BillingSubscription) {
	at := p.OccurredAt
	if p.Kind == PatchPayment {
		sub.LastPaymentStatus = p.LastPaymentStatus
		sub.LastPaymentAt = p.LastPaymentAt
		sub.LastTransactionID = p.LastTransactionID
		sub.BillingEventAt = &at
		return
	}
	sub.Status = p.Status
	sub.CurrentPeriodStart = p.CurrentPeriodStart
	sub.CurrentPeriodEnd = p.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = p.CancelAtPeriodEnd
	sub.NextBillingDate = p.NextBillingDate
	sub.CanceledAt = p.CanceledAt
	sub.StatusEventAt = &at
	if p.ProviderCustomerID != "" {
		sub.ProviderCustomerID = p.ProviderCustomerID
	}
	if p.UserID != 0 {
		sub.UserID = p.UserID
	}
	if p.ProviderPlanRef != "" {
		sub.ProviderPlanRef = p.ProviderPlanRef
	}
}

func (p SubscriptionPatch) newRecord() *models.BillingSubscription {
	sub := &models.BillingSubscription{
		Provider:               p.Provider,
		ProviderSubscriptionID: p.ProviderSubscriptionID,
	}
	p.apply(sub)
	return sub
}

// guardAllows reports whether a patch at occurredAt may overwrite a field
// group last written at current.
func guardAllows(current *time.Time, occurredAt time.Time) bool {
	return current == nil || !current.After(occurredAt)
}
