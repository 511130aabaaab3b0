package models

import (
	"time"

	"gorm.io/gorm"
)

// Broadcast statuses. A broadcast is created QUEUED and is written exactly
// once more when fan-out finishes. For every terminal broadcast
// SuccessfulSends + FailedSends == TotalRecipients.
const (
	BroadcastStatusQueued    = "QUEUED"
	BroadcastStatusCompleted = "COMPLETED"
	BroadcastStatusPartial   = "PARTIAL"
	BroadcastStatusFailed    = "FAILED"
)

type Broadcast struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PublicID        string         `gorm:"uniqueIndex;not null;size:36" json:"public_id"`
	Name            string         `gorm:"size:255" json:"name"`
	Status          string         `gorm:"size:50;default:'QUEUED';index" json:"status"`
	TotalRecipients int            `gorm:"default:0" json:"total_recipients"`
	SuccessfulSends int            `gorm:"default:0" json:"successful_sends"`
	FailedSends     int            `gorm:"default:0" json:"failed_sends"`
	CreatedBy       uint           `gorm:"not null;index" json:"created_by"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
