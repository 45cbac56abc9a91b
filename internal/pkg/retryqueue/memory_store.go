package retryqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

// MemoryStore is an in-process Store for DB_DRIVER=memory and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*models.WebhookRetryEntry
	byEvent map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.WebhookRetryEntry),
		byEvent: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, entry *models.WebhookRetryEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entry.Provider + "\x00" + entry.EventID
	if _, ok := s.byEvent[key]; ok {
		return false, nil
	}
	row := *entry
	s.entries[row.ID] = &row
	s.byEvent[key] = row.ID
	return true, nil
}

func (s *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]models.WebhookRetryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]models.WebhookRetryEntry, 0)
	for _, e := range s.entries {
		if e.IsDue(now) {
			due = append(due, *e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRetryAt.Before(due[j].NextRetryAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) Claim(_ context.Context, id, token string, now, staleBefore time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !e.IsDue(now) {
		return false, nil
	}
	if e.ClaimedAt != nil && !e.ClaimedAt.Before(staleBefore) {
		return false, nil
	}
	at := now
	e.ClaimedAt = &at
	e.ClaimToken = token
	return true, nil
}

func (s *MemoryStore) settle(id, token string, apply func(e *models.WebhookRetryEntry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.IsTerminal() || e.ClaimToken != token {
		return false
	}
	apply(e)
	e.ClaimedAt = nil
	e.ClaimToken = ""
	return true
}

func (s *MemoryStore) MarkSucceeded(_ context.Context, id, token string, retryCount int, now time.Time) (bool, error) {
	return s.settle(id, token, func(e *models.WebhookRetryEntry) {
		at := now
		e.Status = models.RetryStatusSucceeded
		e.RetryCount = retryCount
		e.CompletedAt = &at
	}), nil
}

func (s *MemoryStore) Reschedule(_ context.Context, id, token string, retryCount int, nextRetryAt time.Time, lastError string) (bool, error) {
	return s.settle(id, token, func(e *models.WebhookRetryEntry) {
		e.RetryCount = retryCount
		e.NextRetryAt = nextRetryAt
		e.LastError = lastError
	}), nil
}

func (s *MemoryStore) MarkExhausted(_ context.Context, id, token string, retryCount int, lastError string, now time.Time) (bool, error) {
	return s.settle(id, token, func(e *models.WebhookRetryEntry) {
		at := now
		e.Status = models.RetryStatusFailed
		e.RetryCount = retryCount
		e.LastError = lastError
		e.CompletedAt = &at
	}), nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]models.WebhookRetryEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.WebhookRetryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		matched = append(matched, *e)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].NextRetryAt.Before(matched[j].NextRetryAt)
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

func (s *MemoryStore) CountByStatus(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64)
	for _, e := range s.entries {
		out[e.Status]++
	}
	return out, nil
}

// Get returns a copy of the entry with id.
func (s *MemoryStore) Get(id string) (models.WebhookRetryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return models.WebhookRetryEntry{}, false
	}
	return *e, true
}
