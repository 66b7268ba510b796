package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
)

func AddToWishlist(c *gin.Context) {
	identity, eventID, gormDB, ok := wishlistTarget(c)
	if !ok {
		return
	}
	if !requireActiveEvent(c, gormDB, eventID) {
		return
	}

	res := gormDB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WishlistItem{UserID: identity, EventID: eventID})
	if res.Error != nil {
		internalError(c, "Failed to update wishlist.", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusConflict, "Event already in wishlist.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Event added to wishlist.", "event_id": eventID})
}

func RemoveFromWishlist(c *gin.Context) {
	identity, eventID, gormDB, ok := wishlistTarget(c)
	if !ok {
		return
	}

	res := gormDB.Where("user_id = ? AND event_id = ?", identity, eventID).Delete(&models.WishlistItem{})
	if res.Error != nil {
		internalError(c, "Failed to update wishlist.", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not in wishlist.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event removed from wishlist.", "event_id": eventID})
}

// ToggleWishlist adds the event if absent and removes it otherwise.
func ToggleWishlist(c *gin.Context) {
	identity, eventID, gormDB, ok := wishlistTarget(c)
	if !ok {
		return
	}

	res := gormDB.Where("user_id = ? AND event_id = ?", identity, eventID).Delete(&models.WishlistItem{})
	if res.Error != nil {
		internalError(c, "Failed to update wishlist.", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		c.JSON(http.StatusOK, gin.H{"in_wishlist": false, "event_id": eventID})
		return
	}

	if !requireActiveEvent(c, gormDB, eventID) {
		return
	}
	if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WishlistItem{UserID: identity, EventID: eventID}).Error; err != nil {
		internalError(c, "Failed to update wishlist.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"in_wishlist": true, "event_id": eventID})
}

// ListWishlist returns the caller's saved events, most recently saved
// first. Events deleted or taken off sale since are left out.
func ListWishlist(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var events []models.Event
	err := gormDB.Model(&models.Event{}).
		Joins("JOIN wishlist_items ON wishlist_items.event_id = events.id").
		Where("wishlist_items.user_id = ? AND events.status = ?", identity.UserID, models.EventActive).
		Order("wishlist_items.created_at DESC").
		Find(&events).Error
	if err != nil {
		internalError(c, "Error retrieving wishlist.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

func wishlistTarget(c *gin.Context) (uuid.UUID, uuid.UUID, *gorm.DB, bool) {
	eventID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return uuid.Nil, uuid.Nil, nil, false
	}
	identity, ok := requireIdentity(c)
	if !ok {
		return uuid.Nil, uuid.Nil, nil, false
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return uuid.Nil, uuid.Nil, nil, false
	}
	return identity.UserID, eventID, gormDB, true
}

func requireActiveEvent(c *gin.Context, gormDB *gorm.DB, eventID uuid.UUID) bool {
	var event models.Event
	err := gormDB.Select("id").Where("id = ? AND status = ?", eventID, models.EventActive).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return false
	}
	if err != nil {
		internalError(c, "Error retrieving event.", err)
		return false
	}
	return true
}
