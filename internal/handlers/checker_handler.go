package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
)

type InviteCheckerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile" binding:"required,numeric,len=10"`
}

type AssignCheckerRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
}

// InviteChecker creates a ticket checker account owned by the calling
// organizer. The temporary password is returned once and never stored in
// plain text.
func InviteChecker(c *gin.Context) {
	var req InviteCheckerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	password, err := auth.TemporaryPassword()
	if err != nil {
		internalError(c, "Failed to generate password.", err)
		return
	}

	inviter := &models.User{ID: identity.UserID}
	checker, err := createAccount(gormDB, req.Username, req.Email, req.Mobile, password, models.RoleTicketChecker, inviter)
	if errors.Is(err, errAccountExists) {
		helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
		return
	}
	if err != nil {
		internalError(c, "Failed to create checker.", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":            "Ticket checker invited.",
		"checker":            checker,
		"temporary_password": password,
	})
}

// AssignCheckerEvent lets an organizer put one of their checkers on one of
// their events. Repeating an assignment is a no-op.
func AssignCheckerEvent(c *gin.Context) {
	checkerID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid checker ID.")
		return
	}

	var req AssignCheckerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Event ID is required.")
		return
	}

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var checker models.User
	if err := gormDB.Where("id = ? AND role = ? AND invited_by = ?", checkerID, models.RoleTicketChecker, identity.UserID).First(&checker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Checker not found.")
			return
		}
		internalError(c, "Error finding checker.", err)
		return
	}

	if _, err := ownsEvent(gormDB, identity, req.EventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to staff it.")
			return
		}
		internalError(c, "Error finding event.", err)
		return
	}

	assignment := models.CheckerAssignment{CheckerID: checker.ID, EventID: req.EventID}
	if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment).Error; err != nil {
		internalError(c, "Failed to assign checker.", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Checker assigned.",
		"checker_id": checker.ID,
		"event_id":   req.EventID,
	})
}

func ListCheckerEvents(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var events []models.Event
	err := gormDB.
		Joins("JOIN checker_assignments ON checker_assignments.event_id = events.id").
		Where("checker_assignments.checker_id = ?", identity.UserID).
		Order("events.date ASC").
		Find(&events).Error
	if err != nil {
		internalError(c, "Error retrieving events.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func GetCheckerEventStats(c *gin.Context) {
	eventID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var event models.Event
	err = gormDB.
		Joins("JOIN checker_assignments ON checker_assignments.event_id = events.id").
		Where("events.id = ? AND checker_assignments.checker_id = ?", eventID, identity.UserID).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "You are not assigned to this event.", nil)
		return
	}
	if err != nil {
		internalError(c, "Error finding event.", err)
		return
	}

	respondEventStats(c, gormDB, &event)
}
