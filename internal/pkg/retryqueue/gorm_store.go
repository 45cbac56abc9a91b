package retryqueue

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by GORM.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, entry *models.WebhookRetryEntry) (bool, error) {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *gormStore) ListDue(ctx context.Context, now time.Time, limit int) ([]models.WebhookRetryEntry, error) {
	var entries []models.WebhookRetryEntry
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", models.RetryStatusPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *gormStore) Claim(ctx context.Context, id, token string, now, staleBefore time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.WebhookRetryEntry{}).
		Where("id = ? AND status = ? AND next_retry_at <= ?", id, models.RetryStatusPending, now).
		Where("(claimed_at IS NULL OR claimed_at < ?)", staleBefore).
		Updates(map[string]interface{}{
			"claimed_at":  now,
			"claim_token": token,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) settle(ctx context.Context, id, token string, updates map[string]interface{}) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.WebhookRetryEntry{}).
		Where("id = ? AND status = ? AND claim_token = ?", id, models.RetryStatusPending, token).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) MarkSucceeded(ctx context.Context, id, token string, retryCount int, now time.Time) (bool, error) {
	return s.settle(ctx, id, token, map[string]interface{}{
		"status":       models.RetryStatusSucceeded,
		"retry_count":  retryCount,
		"completed_at": now,
		"claimed_at":   nil,
		"claim_token":  "",
	})
}

func (s *gormStore) Reschedule(ctx context.Context, id, token string, retryCount int, nextRetryAt time.Time, lastError string) (bool, error) {
	return s.settle(ctx, id, token, map[string]interface{}{
		"retry_count":   retryCount,
		"next_retry_at": nextRetryAt,
		"last_error":    lastError,
		"claimed_at":    nil,
		"claim_token":   "",
	})
}

func (s *gormStore) MarkExhausted(ctx context.Context, id, token string, retryCount int, lastError string, now time.Time) (bool, error) {
	return s.settle(ctx, id, token, map[string]interface{}{
		"status":       models.RetryStatusFailed,
		"retry_count":  retryCount,
		"last_error":   lastError,
		"completed_at": now,
		"claimed_at":   nil,
		"claim_token":  "",
	})
}

func (s *gormStore) List(ctx context.Context, filter ListFilter) ([]models.WebhookRetryEntry, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.WebhookRetryEntry{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.WebhookRetryEntry
	err := q.Order("next_retry_at ASC").Limit(filter.Limit).Offset(filter.Offset).Find(&entries).Error
	return entries, total, err
}

func (s *gormStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.WebhookRetryEntry{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
