package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign lifecycle statuses. Transitions only move forward: DRAFT is set
// at creation, activation moves a campaign to PAUSED or ACTIVE, and the
// scheduler flips PAUSED->ACTIVE and ACTIVE->COMPLETED as the time window
// opens and closes. Nothing moves a campaign backward.
const (
	CampaignStatusDraft     = "DRAFT"
	CampaignStatusPaused    = "PAUSED"
	CampaignStatusActive    = "ACTIVE"
	CampaignStatusCompleted = "COMPLETED"
)

type Campaign struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	OwnerID            uint           `gorm:"not null;index" json:"owner_id"`
	Name               string         `gorm:"size:255" json:"name"`
	Status             string         `gorm:"size:50;default:'DRAFT';index" json:"status"`
	StartTime          time.Time      `gorm:"not null" json:"start_time"`
	EndTime            time.Time      `gorm:"not null" json:"end_time"`
	ExternalCampaignID string         `gorm:"size:255" json:"external_campaign_id"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
