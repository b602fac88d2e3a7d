package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ListingStatusPending  = "pending"
	ListingStatusActive   = "active"
	ListingStatusSold     = "sold"
	ListingStatusInactive = "inactive"
)

// Listing carries only the columns the entitlement usage counters read.
type Listing struct {
	ID        uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	Title     string          `gorm:"type:varchar(200);not null" json:"title"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Status    string          `gorm:"type:varchar(10);not null;default:'active';index" json:"status"`
	Featured  bool            `gorm:"not null;default:false;index" json:"featured"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
