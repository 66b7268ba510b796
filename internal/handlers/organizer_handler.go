package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
)

type OrganizerApplication struct {
	CompanyName string `json:"company_name" binding:"required,max=100"`
}

type OrganizerReview struct {
	Status models.OrganizerStatus `json:"status" binding:"required,oneof=approved rejected"`
}

// ApplyOrganizer files a request to become an organizer. A rejected
// applicant may apply again.
func ApplyOrganizer(c *gin.Context) {
	var req OrganizerApplication
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Company name is required.")
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

	result := gormDB.Model(&models.User{}).
		Where("id = ? AND role = ?", identity.UserID, models.RoleUser).
		Where("(organizer_status IS NULL OR organizer_status IN ?)", []models.OrganizerStatus{models.OrganizerNone, models.OrganizerRejected}).
		Updates(map[string]any{
			"organizer_status":  models.OrganizerPending,
			"organizer_company": strings.TrimSpace(req.CompanyName),
		})
	if result.Error != nil {
		internalError(c, "Failed to submit application.", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusConflict, "Application already pending or approved.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Organizer application submitted.",
		"status":  models.OrganizerPending,
	})
}

func GetOrganizerStatus(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var user models.User
	if err := gormDB.Where("id = ?", identity.UserID).First(&user).Error; err != nil {
		internalError(c, "Error retrieving user.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       user.OrganizerStatus,
		"company_name": user.OrganizerCompany,
		"role":         user.Role,
	})
}

func ListPendingOrganizers(c *gin.Context) {
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	var users []models.User
	if err := gormDB.Where("organizer_status = ?", models.OrganizerPending).Order("updated_at ASC").Find(&users).Error; err != nil {
		internalError(c, "Error retrieving applications.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicants": users})
}

// ReviewOrganizer approves or rejects a pending application. Approval
// promotes the applicant to the organizer role.
func ReviewOrganizer(c *gin.Context) {
	userID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user ID.")
		return
	}

	var req OrganizerReview
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Status must be approved or rejected.")
		return
	}

	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	updates := map[string]any{"organizer_status": req.Status}
	if req.Status == models.OrganizerApproved {
		updates["role"] = models.RoleOrganizer
	}

	var user models.User
	err = gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND organizer_status = ?", userID, models.OrganizerPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", userID).First(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "No pending application for this user.")
		return
	}
	if err != nil {
		internalError(c, "Failed to review application.", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Application " + string(req.Status) + ".",
		"user":    user,
	})
}
