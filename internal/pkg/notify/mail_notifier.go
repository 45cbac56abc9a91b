package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sony/gobreaker"
)

// Mailer is the subset of the SMTP mailer used for alerts.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// MailNotifier e-mails critical alerts. Sends run through a circuit breaker
// so an unreachable relay fails fast instead of stalling retry sweeps.
type MailNotifier struct {
	mailer     Mailer
	recipients []string
	cb         *gobreaker.CircuitBreaker
}

func NewMailNotifier(mailer Mailer, recipients []string) *MailNotifier {
	settings := gobreaker.Settings{
		Name:        "AlertMail",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("[AlertMail] circuit breaker %s changed from %s to %s", name, from.String(), to.String())
		},
	}
	return &MailNotifier{
		mailer:     mailer,
		recipients: recipients,
		cb:         gobreaker.NewCircuitBreaker(settings),
	}
}

func (n *MailNotifier) Notify(ctx context.Context, a Alert) error {
	if a.Severity != SeverityCritical || len(n.recipients) == 0 {
		return nil
	}
	subject := fmt.Sprintf("[PaddleSync] %s", a.Title)
	body := strings.TrimSpace(strings.Join([]string{
		a.Message,
		"action: " + a.Action,
		formatFields(a.Fields),
	}, "\n"))

	_, err := n.cb.Execute(func() (interface{}, error) {
		return nil, n.mailer.Send(ctx, n.recipients, subject, body)
	})
	if err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}
