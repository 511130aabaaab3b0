package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		if v == "{}" || v == "" {
			*s = StringArray{}
			return nil
		}

		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try to parse as JSON first
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return errors.New(fmt.Sprintf("cannot scan %T into StringArray", value))
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// Scheduled item statuses shared by posts and articles. An item leaves
// pending exactly once: the worker claims it (processing) and then writes
// a terminal published or failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusPublished  = "published"
	StatusFailed     = "failed"
)

// ScheduledPost is a social post queued for publication at a future time.
type ScheduledPost struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	PageID         string         `gorm:"not null;size:255" json:"page_id"`
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
