// Package store persists tickets, events and users. The ticket store's
// TryRedeem is the single conditional update that the check-in engine relies
// on for at-most-once redemption.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/models"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateKey indicates a unique constraint rejected the write.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	CreateBatch(ctx context.Context, tickets []*models.Ticket) error
	FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error)
	// TryRedeem marks an unscanned ticket as scanned in one conditional
	// update. ok is false when no row matched: the ticket does not exist or
	// was already scanned.
	TryRedeem(ctx context.Context, ticketID string, scannedBy uuid.UUID, now time.Time) (ticket *models.Ticket, ok bool, err error)
	// Cancel moves a booked ticket to cancelled. ok is false when no booked
	// ticket with that id exists.
	Cancel(ctx context.Context, ticketID string) (ticket *models.Ticket, ok bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	EventStats(ctx context.Context, eventID uuid.UUID) (EventStats, error)
}

type EventStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type EventStats struct {
	Total     int64           `json:"total"`
	CheckedIn int64           `json:"checked_in"`
	Cancelled int64           `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
