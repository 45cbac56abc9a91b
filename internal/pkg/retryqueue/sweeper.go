package retryqueue

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PaddleSync/app/models"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
)

// DefaultClaimTTL is how long a claim blocks other sweepers. A sweeper that
// died mid-entry releases it after this long.
const DefaultClaimTTL = 10 * time.Minute

// Processor re-applies a stored event.
type Processor interface {
	Process(ctx context.Context, eventType string, payload []byte) error
}

// SweepResult counts the outcomes of one sweep pass.
type SweepResult struct {
	Succeeded   int `json:"succeeded"`
	Rescheduled int `json:"rescheduled"`
	Exhausted   int `json:"exhausted"`
	Skipped     int `json:"skipped"`
}

// Sweeper re-attempts due retry entries. Several sweepers may run at once;
// each entry is claimed before it is processed.
type Sweeper struct {
	store     Store
	processor Processor
	policy    Policy
	notifier  notify.Notifier
	claimTTL  time.Duration
	now       func() time.Time
}

func NewSweeper(store Store, processor Processor, policy Policy, notifier notify.Notifier, claimTTL time.Duration) *Sweeper {
	if notifier == nil {
		notifier = notify.Nop
	}
	if claimTTL <= 0 {
		claimTTL = DefaultClaimTTL
	}
	return &Sweeper{
		store:     store,
		processor: processor,
		policy:    policy,
		notifier:  notifier,
		claimTTL:  claimTTL,
		now:       time.Now,
	}
}

// Sweep processes up to batchSize due entries, oldest due first. Every entry
// is committed before the next one starts; when ctx ends the pass stops and
// the remaining entries stay pending for the next trigger.
func (s *Sweeper) Sweep(ctx context.Context, batchSize int) (SweepResult, error) {
	var res SweepResult
	if batchSize <= 0 {
		batchSize = 50
	}

	start := s.now()
	due, err := s.store.ListDue(ctx, start, batchSize)
	if err != nil {
		return res, err
	}
	if len(due) == 0 {
		return res, nil
	}

	token := uuid.NewString()
	for i := range due {
		if err := ctx.Err(); err != nil {
			log.Warnf("[Sweeper] Stopping after %d of %d entries: %v", i, len(due), err)
			return res, err
		}
		s.attempt(ctx, &due[i], token, &res)
	}

	log.Infof("[Sweeper] Pass finished: %d succeeded, %d rescheduled, %d exhausted, %d skipped",
		res.Succeeded, res.Rescheduled, res.Exhausted, res.Skipped)
	return res, nil
}

func (s *Sweeper) attempt(ctx context.Context, entry *models.WebhookRetryEntry, token string, res *SweepResult) {
	now := s.now()
	claimed, err := s.store.Claim(ctx, entry.ID, token, now, now.Add(-s.claimTTL))
	if err != nil {
		log.Errorf("[Sweeper] Failed to claim entry %s: %v", entry.ID, err)
		res.Skipped++
		return
	}
	if !claimed {
		res.Skipped++
		return
	}

	procErr := s.processor.Process(ctx, entry.EventType, []byte(entry.PayloadJSON))
	ctx, cancel := SettleContext(ctx)
	defer cancel()
	now = s.now()
	newCount := entry.RetryCount + 1

	if procErr == nil {
		ok, err := s.store.MarkSucceeded(ctx, entry.ID, token, newCount, now)
		if err != nil {
			log.Errorf("[Sweeper] Failed to mark entry %s succeeded: %v", entry.ID, err)
			return
		}
		if ok {
			res.Succeeded++
			log.Infof("[Sweeper] Event %s succeeded on attempt %d", entry.EventID, newCount)
		}
		return
	}

	lastError := procErr.Error()
	if isPermanent(procErr) || s.policy.Exhausted(newCount, entry.MaxRetries) {
		ok, err := s.store.MarkExhausted(ctx, entry.ID, token, newCount, lastError, now)
		if err != nil {
			log.Errorf("[Sweeper] Failed to mark entry %s exhausted: %v", entry.ID, err)
			return
		}
		if !ok {
			return
		}
		res.Exhausted++
		entry.RetryCount = newCount
		entry.LastError = lastError
		log.Errorf("[Sweeper] Event %s exhausted after %d attempts: %s", entry.EventID, newCount, lastError)
		alert := exhaustedAlert(entry, notify.ActionRetryExhausted, "Webhook retry exhausted")
		if err := s.notifier.Notify(ctx, alert); err != nil {
			log.Errorf("[Sweeper] Failed to send exhaustion alert for %s: %v", entry.EventID, err)
		}
		return
	}

	next := s.policy.NextRetryAt(now, newCount)
	ok, err := s.store.Reschedule(ctx, entry.ID, token, newCount, next, lastError)
	if err != nil {
		log.Errorf("[Sweeper] Failed to reschedule entry %s: %v", entry.ID, err)
		return
	}
	if ok {
		res.Rescheduled++
		log.Warnf("[Sweeper] Event %s failed attempt %d, next at %s: %s", entry.EventID, newCount, next.Format(time.RFC3339), lastError)
	}
}

// isPermanent reports whether err was marked as not worth retrying.
func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}
