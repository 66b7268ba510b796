package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketBooked    TicketStatus = "booked"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

// Ticket is one admission unit. TicketID is the opaque value encoded in the
// QR artifact. IsScanned only ever moves from false to true, and ScannedAt and
// ScannedBy are set exactly when it is true.
type Ticket struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"-"`
	TicketID  string          `gorm:"size:64;uniqueIndex;not null" json:"ticket_id"`
	EventID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"event_id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Status    TicketStatus    `gorm:"type:varchar(16);not null;index" json:"status"`
	IsScanned bool            `gorm:"not null;index" json:"is_scanned"`
	ScannedAt *time.Time      `json:"scanned_at"`
	ScannedBy *uuid.UUID      `gorm:"type:uuid" json:"scanned_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if ticket.Status == "" {
		ticket.Status = TicketBooked
	}
	return
}

func (ticket *Ticket) Redeemable() bool {
	return ticket.Status == TicketBooked && !ticket.IsScanned
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &Event{}, &Ticket{}, &CheckerAssignment{}, &WishlistItem{}}
}
