package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the audit trail of inbound provider notifications. Rows
// are written for every delivery, duplicates included.
type WebhookEvent struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ResourceID      string     `gorm:"type:varchar(100);not null;index" json:"resource_id"`
	PayloadJSON     string     `gorm:"type:text" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
