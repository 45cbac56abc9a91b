package billing

import (
	"errors"
	"fmt"
)

var (
	ErrMissingWebhookSecret = errors.New("webhook secret is not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrUnknownProvider      = errors.New("unknown billing provider")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ProcessingError is returned by the processor when an event could not be
// applied. Its message is stored verbatim as the retry entry's last error.
type ProcessingError struct {
	EventID   string
	EventType string
	Cause     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s event %s: %v", e.EventType, e.EventID, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Permanent reports whether retrying the event can never succeed.
func (e *ProcessingError) Permanent() bool {
	return IsPermanent(e.Cause)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Permanent() bool { return true }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err or anything it wraps was marked permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
