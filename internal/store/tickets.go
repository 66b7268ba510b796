package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farellandr/ticketgate/internal/models"
)

type GormTicketStore struct {
	db *gorm.DB
}

func NewTicketStore(db *gorm.DB) *GormTicketStore {
	return &GormTicketStore{db: db}
}

func (s *GormTicketStore) Create(ctx context.Context, ticket *models.Ticket) error {
	return translate(s.db.WithContext(ctx).Create(ticket).Error)
}

// CreateBatch inserts all tickets or none.
func (s *GormTicketStore) CreateBatch(ctx context.Context, tickets []*models.Ticket) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ticket := range tickets {
			if err := tx.Create(ticket).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *GormTicketStore) FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

func (s *GormTicketStore) TryRedeem(ctx context.Context, ticketID string, scannedBy uuid.UUID, now time.Time) (*models.Ticket, bool, error) {
	return s.conditionalUpdate(ctx, ticketID,
		clause.And(
			clause.Eq{Column: clause.Column{Name: "is_scanned"}, Value: false},
			clause.Eq{Column: clause.Column{Name: "status"}, Value: models.TicketBooked},
		),
		map[string]any{
			"is_scanned": true,
			"scanned_at": now,
			"scanned_by": scannedBy,
		})
}

func (s *GormTicketStore) Cancel(ctx context.Context, ticketID string) (*models.Ticket, bool, error) {
	return s.conditionalUpdate(ctx, ticketID,
		clause.Eq{Column: clause.Column{Name: "status"}, Value: models.TicketBooked},
		map[string]any{"status": models.TicketCancelled})
}

// conditionalUpdate issues one UPDATE ... WHERE ticket_id = ? AND <guard>.
// The storage engine evaluates the guard under its row write lock, so
// concurrent callers are serialized and at most one of them matches.
func (s *GormTicketStore) conditionalUpdate(ctx context.Context, ticketID string, guard clause.Expression, set map[string]any) (*models.Ticket, bool, error) {
	var ticket models.Ticket
	res := s.db.WithContext(ctx).
		Model(&ticket).
		Clauses(clause.Returning{}).
		Where("ticket_id = ?", ticketID).
		Where(guard).
		Updates(set)
	if res.Error != nil {
		return nil, false, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	if ticket.TicketID == "" {
		// Dialect without RETURNING. The row already carries our write.
		updated, err := s.FindByTicketID(ctx, ticketID)
		if err != nil {
			return nil, true, err
		}
		return updated, true, nil
	}
	return &ticket, true, nil
}

func (s *GormTicketStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, translate(err)
}

func (s *GormTicketStore) EventStats(ctx context.Context, eventID uuid.UUID) (EventStats, error) {
	var stats EventStats
	db := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("event_id = ?", eventID)

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, translate(err)
	}
	if err := db.Session(&gorm.Session{}).Where("is_scanned = ?", true).Count(&stats.CheckedIn).Error; err != nil {
		return stats, translate(err)
	}
	if err := db.Session(&gorm.Session{}).Where("status = ?", models.TicketCancelled).Count(&stats.Cancelled).Error; err != nil {
		return stats, translate(err)
	}

	var revenue decimal.NullDecimal
	row := db.Session(&gorm.Session{}).
		Where("status = ?", models.TicketBooked).
		Select("SUM(price)").
		Row()
	if err := row.Scan(&revenue); err != nil {
		return stats, translate(err)
	}
	stats.Revenue = decimal.Zero
	if revenue.Valid {
		stats.Revenue = revenue.Decimal
	}
	return stats, nil
}
