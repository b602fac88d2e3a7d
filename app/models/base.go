package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives a record a random UUID unless one was set by the caller.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
