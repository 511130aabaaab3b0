package models

import (
	"time"

	"gorm.io/gorm"
)

// Article is long-form content scheduled for publication. It goes through
// the same pending/processing/published/failed lifecycle as ScheduledPost
// but lives in its own queue.
type Article struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	PageID         string         `gorm:"not null;size:255" json:"page_id"`
	Title          string         `gorm:"size:500" json:"title"`
	Body           string         `gorm:"type:text" json:"body"`
	Link           string         `gorm:"size:2048" json:"link"`
	MediaURLs      StringArray    `gorm:"type:text[]" json:"media_urls"`
	ScheduledTime  time.Time      `gorm:"not null;index" json:"scheduled_time"`
	Status         string         `gorm:"size:50;default:'pending';index" json:"status"`
	PublishedAt    *time.Time     `json:"published_at"`
	PlatformPostID string         `gorm:"size:255" json:"platform_post_id"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
