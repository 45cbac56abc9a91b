package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Actions emitted by the webhook pipeline.
const (
	ActionRetryExhausted   = "webhook.retry_exhausted"
	ActionEnqueueFailed    = "webhook.enqueue_failed"
	ActionPaymentFailed    = "billing.payment_failed"
	ActionManualRetry      = "webhook.manual_retry"
	ActionPermanentFailure = "webhook.permanent_failure"
)

// Alert is one operator-facing notification.
type Alert struct {
	Severity   Severity
	Action     string
	Actor      string
	Title      string
	Message    string
	TargetType string
	TargetID   string
	Fields     map[string]string
}

// Notifier delivers alerts to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert Alert) error

func (f NotifierFunc) Notify(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}

// Nop discards all alerts.
var Nop Notifier = NotifierFunc(func(context.Context, Alert) error { return nil })

// Fanout delivers every alert to all notifiers and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps alerts in memory.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Notify(_ context.Context, alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

// Alerts returns a copy of everything recorded so far.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// Count returns how many alerts with the given action were recorded.
func (r *Recorder) Count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alerts {
		if a.Action == action {
			n++
		}
	}
	return n
}

// formatFields renders fields as sorted key=value pairs.
func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return strings.Join(parts, " ")
}
