package notify

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PaddleSync/app/models"
)

// AuditNotifier persists alerts as admin audit log rows.
type AuditNotifier struct {
	db *gorm.DB
}

func NewAuditNotifier(db *gorm.DB) *AuditNotifier {
	return &AuditNotifier{db: db}
}

func (n *AuditNotifier) Notify(ctx context.Context, a Alert) error {
	return n.db.WithContext(ctx).Create(auditRow(a)).Error
}

func auditRow(a Alert) *models.AdminAuditLog {
	actor := strings.TrimSpace(a.Actor)
	if actor == "" {
		actor = "system"
	}
	severity := string(a.Severity)
	if severity == "" {
		severity = string(SeverityInfo)
	}
	details := strings.TrimSpace(strings.Join([]string{a.Title, a.Message, formatFields(a.Fields)}, "\n"))
	return &models.AdminAuditLog{
		Action:     a.Action,
		Actor:      actor,
		TargetType: a.TargetType,
		TargetID:   a.TargetID,
		Severity:   severity,
		Details:    details,
	}
}
