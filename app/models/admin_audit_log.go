package models

import "time"

// AdminAuditLog records operator-relevant pipeline events and admin actions.
type AdminAuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Actor      string    `gorm:"type:varchar(200);not null;default:'system'" json:"actor"`
	TargetType string    `gorm:"type:varchar(50);not null;default:''" json:"target_type"`
	TargetID   string    `gorm:"type:varchar(191);not null;default:'';index" json:"target_id"`
	Severity   string    `gorm:"type:varchar(16);not null;default:'info';index" json:"severity"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
