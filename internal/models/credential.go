package models

import (
	"time"

	"gorm.io/gorm"
)

// Credential holds a user's encrypted platform token plus the platform ids
// needed to address outbound calls. Rows are written by the connection
// management flow; the dispatch subsystem only reads them.
type Credential struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	OwnerID           uint           `gorm:"not null;index" json:"owner_id"`
	EncryptedToken    string         `gorm:"type:text;not null" json:"-"`
	PhoneNumberID     string         `gorm:"size:255" json:"phone_number_id"`
	BusinessAccountID string         `gorm:"size:255" json:"business_account_id"`
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
