package retryqueue

import "time"

// DefaultSchedule is the delay before attempt n+1 after n failed attempts.
var DefaultSchedule = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// DefaultMaxRetries is the number of attempts before an entry is exhausted.
const DefaultMaxRetries = 5

// Policy is the single source of retry timing. Enqueue and every sweep
// trigger use it; nothing else computes delays.
type Policy struct {
	Schedule   []time.Duration
	MaxRetries int
}

// DefaultPolicy returns the production backoff policy.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultMaxRetries)
}

// NewPolicy returns the default schedule with a custom retry limit. Values
// outside 1..len(DefaultSchedule) fall back to DefaultMaxRetries.
func NewPolicy(maxRetries int) Policy {
	if maxRetries < 1 || maxRetries > len(DefaultSchedule) {
		maxRetries = DefaultMaxRetries
	}
	schedule := make([]time.Duration, len(DefaultSchedule))
	copy(schedule, DefaultSchedule)
	return Policy{Schedule: schedule, MaxRetries: maxRetries}
}

// Delay returns the wait after retryCount failed attempts. Counts past the
// end of the schedule use its last entry.
func (p Policy) Delay(retryCount int) time.Duration {
	if len(p.Schedule) == 0 {
		return time.Minute
	}
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount >= len(p.Schedule) {
		return p.Schedule[len(p.Schedule)-1]
	}
	return p.Schedule[retryCount]
}

// NextRetryAt returns when an entry with retryCount failed attempts becomes due.
func (p Policy) NextRetryAt(now time.Time, retryCount int) time.Time {
	return now.Add(p.Delay(retryCount))
}

// Exhausted reports whether retryCount attempts use up maxRetries. A zero
// maxRetries means the policy limit.
func (p Policy) Exhausted(retryCount, maxRetries int) bool {
	if maxRetries <= 0 {
		maxRetries = p.MaxRetries
	}
	return retryCount >= maxRetries
}
