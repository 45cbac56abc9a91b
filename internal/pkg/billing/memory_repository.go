package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

// MemoryRepository is an in-process Repository for DB_DRIVER=memory and
// tests. It follows the same conditional-write rules as the GORM variant.
type MemoryRepository struct {
	mu            sync.Mutex
	nextEventID   uint
	nextSubID     uint
	events        map[string]*models.BillingWebhookEvent
	subscriptions map[string]*models.BillingSubscription
	now           func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events:        make(map[string]*models.BillingWebhookEvent),
		subscriptions: make(map[string]*models.BillingSubscription),
		now:           time.Now,
	}
}

func memoryKey(provider, id string) string {
	return provider + "\x00" + id
}

func (r *MemoryRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey(event.Provider, event.EventID)
	if existing, ok := r.events[key]; ok {
		stored := *existing
		return false, &stored, nil
	}

	r.nextEventID++
	now := r.now()
	row := *event
	row.ID = r.nextEventID
	row.CreatedAt = now
	row.UpdatedAt = now
	r.events[key] = &row

	event.ID = row.ID
	event.CreatedAt = now
	event.UpdatedAt = now
	stored := row
	return true, &stored, nil
}

func (r *MemoryRepository) MarkWebhookProcessed(ctx context.Context, provider, eventID, status, processingError string, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.events[memoryKey(provider, eventID)]
	if !ok || row.IsSettled() {
		return nil
	}
	at := processedAt
	row.Status = status
	row.ProcessedAt = &at
	row.ProcessingError = processingError
	row.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) ListWebhookEvents(ctx context.Context, filter EventFilter) ([]models.BillingWebhookEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]models.BillingWebhookEvent, 0, len(r.events))
	for _, e := range r.events {
		if filter.Provider != "" && e.Provider != filter.Provider {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.CreatedAt.Before(*filter.To) {
			continue
		}
		matched = append(matched, *e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) ApplySubscriptionPatch(ctx context.Context, patch SubscriptionPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey(patch.Provider, patch.ProviderSubscriptionID)
	sub, ok := r.subscriptions[key]
	if !ok {
		if !patch.CreateIfMissing {
			return false, ErrSubscriptionNotFound
		}
		r.nextSubID++
		row := patch.newRecord()
		row.ID = r.nextSubID
		row.CreatedAt = r.now()
		row.UpdatedAt = row.CreatedAt
		r.subscriptions[key] = row
		return true, nil
	}

	current := sub.StatusEventAt
	if patch.Kind == PatchPayment {
		current = sub.BillingEventAt
	}
	if !guardAllows(current, patch.OccurredAt) {
		return false, nil
	}
	patch.apply(sub)
	sub.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryRepository) GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.BillingSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[memoryKey(provider, providerSubscriptionID)]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	out := *sub
	return &out, nil
}
