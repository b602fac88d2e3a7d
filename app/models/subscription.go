package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	SubscriptionStatusPending    = "pending"
	SubscriptionStatusAuthorized = "authorized"
	SubscriptionStatusPaused     = "paused"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusExpired    = "expired"
)

const (
	FrequencyTypeDays   = "days"
	FrequencyTypeMonths = "months"
)

// Subscription records one agreement-creation attempt. Rows are never
// reused for a new agreement so the history stays intact.
type Subscription struct {
	ID                  uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	UserID              uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	PlanID              uuid.UUID       `gorm:"type:char(36);not null;index" json:"plan_id"`
	Plan                *Plan           `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	ExternalAgreementID *string         `gorm:"column:mp_preapproval_id;type:varchar(100);index" json:"mp_preapproval_id"`
	Status              string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Frequency           int             `gorm:"not null;default:1" json:"frequency"`
	FrequencyType       string          `gorm:"type:varchar(10);not null;default:'months'" json:"frequency_type"`
	StartDate           *time.Time      `gorm:"type:timestamp;default:null" json:"start_date"`
	NextPaymentDate     *time.Time      `gorm:"type:timestamp;default:null" json:"next_payment_date"`
	EndDate             *time.Time      `gorm:"type:timestamp;default:null" json:"end_date"`
	PaymentMethod       string          `gorm:"type:varchar(50)" json:"payment_method"`
	Metadata            datatypes.JSON  `json:"metadata"`
	Payments            []Payment       `gorm:"foreignKey:SubscriptionID" json:"payments,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AgreementID returns the external agreement id or "" when the gateway
// call never succeeded.
func (s *Subscription) AgreementID() string {
	if s.ExternalAgreementID == nil {
		return ""
	}
	return *s.ExternalAgreementID
}
