package retryqueue

import (
	"context"
	"time"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

// Store persists retry entries. Every state change after Claim is
// conditional on the claim token, so a sweeper that lost its claim cannot
// overwrite the outcome of another.
type Store interface {
	// Create inserts entry unless one already exists for its provider and
	// event id. It reports whether a row was inserted.
	Create(ctx context.Context, entry *models.WebhookRetryEntry) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.WebhookRetryEntry, error)
	// Claim takes entry id for token when it is pending, due and not held by
	// a claim newer than staleBefore.
	Claim(ctx context.Context, id, token string, now, staleBefore time.Time) (bool, error)
	MarkSucceeded(ctx context.Context, id, token string, retryCount int, now time.Time) (bool, error)
	Reschedule(ctx context.Context, id, token string, retryCount int, nextRetryAt time.Time, lastError string) (bool, error)
	MarkExhausted(ctx context.Context, id, token string, retryCount int, lastError string, now time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.WebhookRetryEntry, int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// ListFilter narrows the retry entry listing.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// SettleTimeout bounds the writes that record an attempt once processing
// has returned.
const SettleTimeout = 5 * time.Second

// SettleContext detaches from the caller's cancellation so an attempt that
// used up the request deadline is still recorded.
func SettleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), SettleTimeout)
}
