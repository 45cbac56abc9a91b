package retryqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Sweepable runs one sweep pass.
type Sweepable interface {
	Sweep(ctx context.Context, batchSize int) (SweepResult, error)
}

// Scheduler triggers sweeps from a ticker inside the process. It is optional;
// the cron endpoint drives sweeps when no interval is configured.
type Scheduler struct {
	sweeper   Sweepable
	interval  time.Duration
	batchSize int
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

func NewScheduler(sweeper Sweepable, interval time.Duration, batchSize int) *Scheduler {
	return &Scheduler{
		sweeper:   sweeper,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start begins ticking. A non-positive interval leaves the scheduler off.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.interval <= 0 {
		return
	}

	// Recreate stop channel for each start cycle so the scheduler can be restarted.
	s.stopCh = make(chan struct{})
	s.running = true
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.sweepWorker(s.ticker, s.stopCh)

	log.Infof("[Retry Scheduler] Started (interval: %s, batch: %d)", s.interval, s.batchSize)
}

// Stop halts the ticker and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Info("[Retry Scheduler] Stopping...")
	s.ticker.Stop()
	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	log.Info("[Retry Scheduler] Stopped")
}

// IsRunning reports whether the ticker is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) sweepWorker(ticker *time.Ticker, stopCh chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runOnce(stopCh)
		}
	}
}

func (s *Scheduler) runOnce(stopCh chan struct{}) {
	// A pass may use at most one interval so ticks never pile up.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := s.sweeper.Sweep(ctx, s.batchSize); err != nil {
		log.Errorf("[Retry Scheduler] Sweep failed: %v", err)
	}
}
