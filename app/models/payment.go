package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentStatusPending     = "pending"
	PaymentStatusApproved    = "approved"
	PaymentStatusAuthorized  = "authorized"
	PaymentStatusInProcess   = "in_process"
	PaymentStatusInMediation = "in_mediation"
	PaymentStatusRejected    = "rejected"
	PaymentStatusCancelled   = "cancelled"
	PaymentStatusRefunded    = "refunded"
	PaymentStatusChargedBack = "charged_back"
)

// Payment is a single charge reported by the gateway. ExternalPaymentID is
// unique so redelivered notifications update the same row.
type Payment struct {
	ID                uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	SubscriptionID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"subscription_id"`
	Subscription      *Subscription   `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	UserID            uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	ExternalPaymentID string          `gorm:"column:mp_payment_id;type:varchar(100);uniqueIndex" json:"mp_payment_id"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StatusDetail      string          `gorm:"type:varchar(100)" json:"status_detail"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod     string          `gorm:"type:varchar(50)" json:"payment_method"`
	PaymentType       string          `gorm:"type:varchar(50)" json:"payment_type"`
	Description       string          `gorm:"type:varchar(255)" json:"description"`
	PayerEmail        string          `gorm:"type:varchar(100)" json:"payer_email"`
	PaidAt            *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at"`
	Metadata          datatypes.JSON  `json:"metadata"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsKnownPaymentStatus reports whether status is one the payments table accepts.
func IsKnownPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusAuthorized,
		PaymentStatusInProcess, PaymentStatusInMediation, PaymentStatusRejected,
		PaymentStatusCancelled, PaymentStatusRefunded, PaymentStatusChargedBack:
		return true
	default:
		return false
	}
}
