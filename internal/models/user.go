package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrganizerStatus string

const (
	OrganizerNone     OrganizerStatus = ""
	OrganizerPending  OrganizerStatus = "pending"
	OrganizerApproved OrganizerStatus = "approved"
	OrganizerRejected OrganizerStatus = "rejected"
)

type User struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Username         string          `gorm:"uniqueIndex;not null" json:"username"`
	Email            string          `gorm:"uniqueIndex;not null" json:"email"`
	Mobile           string          `gorm:"not null" json:"mobile"`
	Password         string          `gorm:"not null" json:"-"`
	Role             Role            `gorm:"type:varchar(16);not null;index" json:"role"`
	IsActive         bool            `gorm:"not null" json:"is_active"`
	OrganizerStatus  OrganizerStatus `gorm:"type:varchar(16)" json:"organizer_status,omitempty"`
	OrganizerCompany string          `json:"organizer_company,omitempty"`
	InvitedBy        *uuid.UUID      `gorm:"type:uuid" json:"invited_by,omitempty"`
	LastLogin        *time.Time      `json:"last_login,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

// WishlistItem is an event a user saved for later.
type WishlistItem struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	EventID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckerAssignment links a ticket checker to an event they may work.
type CheckerAssignment struct {
	CheckerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"checker_id"`
	EventID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}
