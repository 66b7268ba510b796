package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
)

type EventRequest struct {
	Title       string          `json:"title" binding:"required,max=100"`
	Description string          `json:"description" binding:"required,max=2000"`
	Date        time.Time       `json:"date" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Address     string          `json:"address"`
	City        string          `json:"city" binding:"required"`
	State       string          `json:"state"`
	Pincode     string          `json:"pincode"`
}

func (req *EventRequest) validate() string {
	if req.Price.IsNegative() {
		return "Price cannot be negative."
	}
	if !req.Date.After(time.Now()) {
		return "Event date must be in the future."
	}
	return ""
}

func (req *EventRequest) apply(event *models.Event) {
	event.Title = strings.TrimSpace(req.Title)
	event.Description = req.Description
	event.Date = req.Date.UTC()
	event.Price = req.Price
	event.Address = req.Address
	event.City = strings.TrimSpace(req.City)
	event.State = req.State
	event.Pincode = req.Pincode
}

func CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if msg := req.validate(); msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
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

	event := models.Event{OrganizerID: identity.UserID, Status: models.EventDraft}
	req.apply(&event)

	if err := gormDB.Create(&event).Error; err != nil {
		internalError(c, "Failed to create event.", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event submitted for approval.",
		"event":   event,
	})
}

// GetEvent serves active events only.
func GetEvent(c *gin.Context) {
	eventID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var event models.Event
	if err := gormDB.Where("id = ? AND status = ?", eventID, models.EventActive).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		internalError(c, "Error retrieving event.", err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func ListEvents(c *gin.Context) {
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	pageNum, limitNum, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page or limit.")
		return
	}

	query := gormDB.Model(&models.Event{}).Where("status = ?", models.EventActive)
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var totalCount int64
	if err := query.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		internalError(c, "Error retrieving events.", err)
		return
	}

	var events []models.Event
	offset := (pageNum - 1) * limitNum
	if err := query.Offset(offset).Limit(limitNum).Order("date ASC").Find(&events).Error; err != nil {
		internalError(c, "Error retrieving events.", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": helpers.TotalPages(totalCount, limitNum),
	})
}

func ListOrganizerEvents(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var events []models.Event
	if err := gormDB.Where("organizer_id = ?", identity.UserID).Order("created_at DESC").Find(&events).Error; err != nil {
		internalError(c, "Error retrieving events.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func UpdateEvent(c *gin.Context) {
	eventID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if msg := req.validate(); msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
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
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, identity.UserID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to update.")
			return
		}
		internalError(c, "Error finding event.", err)
		return
	}

	req.apply(&event)
	if err := gormDB.Save(&event).Error; err != nil {
		internalError(c, "Failed to update event.", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully.",
		"event":   event,
	})
}

// DeleteEvent soft-deletes; tickets stay for audit.
func DeleteEvent(c *gin.Context) {
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

	result := gormDB.Where("id = ? AND organizer_id = ?", eventID, identity.UserID).Delete(&models.Event{})
	if result.Error != nil {
		internalError(c, "Failed to delete event.", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to delete.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted successfully.",
	})
}

// GetEventStats reports sales and check-ins to the owning organizer or an
// admin.
func GetEventStats(c *gin.Context) {
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

	event, err := store.NewEventStore(gormDB).FindByID(c.Request.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}
	if err != nil {
		internalError(c, "Error finding event.", err)
		return
	}
	if identity.Role != models.RoleAdmin && event.OrganizerID != identity.UserID {
		helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "You don't have access to this event.", nil)
		return
	}

	respondEventStats(c, gormDB, event)
}

func respondEventStats(c *gin.Context, gormDB *gorm.DB, event *models.Event) {
	stats, err := store.NewTicketStore(gormDB).EventStats(c.Request.Context(), event.ID)
	if err != nil {
		internalError(c, "Error computing statistics.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event_id":    event.ID,
		"event_title": event.Title,
		"stats":       stats,
	})
}

func ListPendingEvents(c *gin.Context) {
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var events []models.Event
	if err := gormDB.Where("status = ?", models.EventDraft).Order("created_at ASC").Find(&events).Error; err != nil {
		internalError(c, "Error retrieving events.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func ApproveEvent(c *gin.Context) {
	setEventStatus(c, models.EventActive, "Event approved.")
}

func RejectEvent(c *gin.Context) {
	setEventStatus(c, models.EventInactive, "Event rejected.")
}

func setEventStatus(c *gin.Context, status models.EventStatus, message string) {
	eventID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	result := gormDB.Model(&models.Event{}).Where("id = ?", eventID).Update("status", status)
	if result.Error != nil {
		internalError(c, "Failed to update event.", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  message,
		"event_id": eventID,
		"status":   status,
	})
}

func ownsEvent(gormDB *gorm.DB, identity auth.Identity, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := gormDB.Where("id = ? AND organizer_id = ?", eventID, identity.UserID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
