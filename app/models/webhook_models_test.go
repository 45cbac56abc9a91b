package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBillingWebhookEvent_IsSettled(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"", false},
		{WebhookEventStatusSuccess, true},
		{WebhookEventStatusFailed, true},
	}
	for _, tt := range tests {
		e := BillingWebhookEvent{Status: tt.status}
		assert.Equal(t, tt.want, e.IsSettled(), "status %q", tt.status)
	}
}

func TestWebhookRetryEntry_States(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	pending := WebhookRetryEntry{Status: RetryStatusPending, NextRetryAt: now}
	assert.False(t, pending.IsTerminal())
	assert.True(t, pending.IsDue(now))
	assert.False(t, pending.IsDue(now.Add(-time.Second)))

	for _, status := range []string{RetryStatusSucceeded, RetryStatusFailed} {
		e := WebhookRetryEntry{Status: status, NextRetryAt: now}
		assert.True(t, e.IsTerminal(), status)
		assert.False(t, e.IsDue(now.Add(time.Hour)), status)
	}
}
