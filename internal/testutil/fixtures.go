package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/models"
)

func CreateUser(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username: string(role) + "-" + suffix,
		Email:    string(role) + "-" + suffix + "@example.com",
		Mobile:   "9876543210",
		Password: "not-a-hash",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func CreateEvent(t testing.TB, db *gorm.DB, organizerID uuid.UUID, price string) *models.Event {
	t.Helper()
	event := &models.Event{
		OrganizerID: organizerID,
		Title:       "Launch Night",
		Description: "Doors open at seven.",
		Date:        time.Now().Add(72 * time.Hour).UTC(),
		Price:       decimal.RequireFromString(price),
		City:        "Pune",
		Status:      models.EventActive,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func CreateTicket(t testing.TB, db *gorm.DB, eventID, userID uuid.UUID, status models.TicketStatus) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		TicketID: uuid.NewString(),
		EventID:  eventID,
		UserID:   userID,
		Price:    decimal.RequireFromString("25.00"),
		Status:   status,
	}
	if err := db.Create(ticket).Error; err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}
