package notify

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// LogNotifier writes alerts to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, a Alert) error {
	switch a.Severity {
	case SeverityCritical:
		log.Errorf("[Alert] %s: %s %s %s", a.Action, a.Title, a.Message, formatFields(a.Fields))
	case SeverityWarning:
		log.Warnf("[Alert] %s: %s %s %s", a.Action, a.Title, a.Message, formatFields(a.Fields))
	default:
		log.Infof("[Alert] %s: %s %s %s", a.Action, a.Title, a.Message, formatFields(a.Fields))
	}
	return nil
}
