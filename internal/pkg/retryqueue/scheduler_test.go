package retryqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sweepFunc func(ctx context.Context, batchSize int) (SweepResult, error)

func (f sweepFunc) Sweep(ctx context.Context, batchSize int) (SweepResult, error) {
	return f(ctx, batchSize)
}

func TestScheduler_RunsSweepsUntilStopped(t *testing.T) {
	calls := make(chan int, 10)
	s := NewScheduler(sweepFunc(func(_ context.Context, batchSize int) (SweepResult, error) {
		select {
		case calls <- batchSize:
		default:
		}
		return SweepResult{}, nil
	}), 10*time.Millisecond, 25)

	assert.False(t, s.IsRunning())
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	select {
	case batch := <-calls:
		assert.Equal(t, 25, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a sweep to run")
	}

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestScheduler_DisabledWithoutInterval(t *testing.T) {
	s := NewScheduler(sweepFunc(func(context.Context, int) (SweepResult, error) {
		t.Fatal("sweep must not run")
		return SweepResult{}, nil
	}), 0, 10)

	s.Start()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestScheduler_CanRestart(t *testing.T) {
	s := NewScheduler(sweepFunc(func(context.Context, int) (SweepResult, error) {
		return SweepResult{}, nil
	}), time.Hour, 10)

	s.Start()
	s.Stop()
	s.Start()
	assert.True(t, s.IsRunning())
	s.Stop()
}
