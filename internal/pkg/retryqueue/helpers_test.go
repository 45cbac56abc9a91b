package retryqueue

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// processorFunc adapts a function to Processor.
type processorFunc func(ctx context.Context, eventType string, payload []byte) error

func (f processorFunc) Process(ctx context.Context, eventType string, payload []byte) error {
	return f(ctx, eventType, payload)
}

type permanentErr struct{ msg string }

func (e permanentErr) Error() string   { return e.msg }
func (e permanentErr) Permanent() bool { return true }

// deadlineStore fails writes on a finished context the way GORM does.
type deadlineStore struct{ *MemoryStore }

func (s deadlineStore) Create(ctx context.Context, entry *models.WebhookRetryEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.MemoryStore.Create(ctx, entry)
}

func (s deadlineStore) Claim(ctx context.Context, id, token string, now, staleBefore time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.MemoryStore.Claim(ctx, id, token, now, staleBefore)
}

func (s deadlineStore) MarkSucceeded(ctx context.Context, id, token string, retryCount int, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.MemoryStore.MarkSucceeded(ctx, id, token, retryCount, now)
}

func (s deadlineStore) Reschedule(ctx context.Context, id, token string, retryCount int, nextRetryAt time.Time, lastError string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.MemoryStore.Reschedule(ctx, id, token, retryCount, nextRetryAt, lastError)
}

func (s deadlineStore) MarkExhausted(ctx context.Context, id, token string, retryCount int, lastError string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.MemoryStore.MarkExhausted(ctx, id, token, retryCount, lastError, now)
}
