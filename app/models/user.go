package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	USER_TYPE_USER   = "user"
	USER_TYPE_ADMIN  = "admin"
	USER_TYPE_AGENCY = "agency"
)

type User struct {
	ID                    uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Name                  string     `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Email                 string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"email" validate:"required,email,max=100"`
	Password              string     `gorm:"type:varchar(255);not null" json:"-"`
	Phone                 string     `gorm:"type:varchar(20)" json:"phone" validate:"max=20"`
	Type                  string     `gorm:"type:varchar(20);not null;default:'user'" json:"type" validate:"oneof=user admin agency"`
	PlanID                *uuid.UUID `gorm:"type:char(36);index" json:"plan_id"`
	Plan                  *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	ExternalAgreementID   string     `gorm:"type:varchar(100);index" json:"external_agreement_id"`
	SubscriptionStatus    string     `gorm:"type:varchar(20)" json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"subscription_expires_at"`
	IsActive              bool       `gorm:"not null" json:"is_active"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	return validator.New().Struct(u)
}

// HasAgreement reports whether the user points at an external billing agreement.
func (u *User) HasAgreement() bool {
	return u.ExternalAgreementID != ""
}

func (u *User) IsAdmin() bool {
	return u.Type == USER_TYPE_ADMIN
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}
