package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EventStatus string

const (
	EventActive   EventStatus = "active"
	EventInactive EventStatus = "inactive"
	EventDraft    EventStatus = "draft"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventActive, EventInactive, EventDraft:
		return true
	}
	return false
}

type Event struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Title       string          `gorm:"size:100;not null" json:"title"`
	Description string          `gorm:"size:2000" json:"description"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Address     string          `json:"address"`
	City        string          `gorm:"index" json:"city"`
	State       string          `json:"state"`
	Pincode     string          `json:"pincode"`
	Status      EventStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = EventDraft
	}
	return
}
