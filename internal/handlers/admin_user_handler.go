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

type UserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type UserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListUsers pages through accounts, newest first. q matches username,
// email or mobile; role and is_active filter exactly.
func ListUsers(c *gin.Context) {
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	pageNum, limitNum, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page or limit.")
		return
	}

	query := gormDB.Model(&models.User{})
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		like := "%" + q + "%"
		query = query.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR mobile LIKE ?)", like, like, like)
	}
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid role.")
			return
		}
		query = query.Where("role = ?", role)
	}
	switch c.Query("is_active") {
	case "":
	case "true":
		query = query.Where("is_active = ?", true)
	case "false":
		query = query.Where("is_active = ?", false)
	default:
		helpers.RespondWithError(c, http.StatusBadRequest, "is_active must be true or false.")
		return
	}

	var totalCount int64
	if err := query.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		internalError(c, "Error retrieving users.", err)
		return
	}

	var users []models.User
	offset := (pageNum - 1) * limitNum
	if err := query.Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&users).Error; err != nil {
		internalError(c, "Error retrieving users.", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": helpers.TotalPages(totalCount, limitNum),
	})
}

func GetUser(c *gin.Context) {
	user, ok := loadUserParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUserRole changes an account's role. Granting admin is refused here;
// admins are seeded from configuration.
func UpdateUserRole(c *gin.Context) {
	var req UserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Role is required.")
		return
	}
	role, err := models.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid role.")
		return
	}
	if role == models.RoleAdmin {
		helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "The admin role cannot be granted.", nil)
		return
	}

	user, ok := loadOtherUser(c)
	if !ok {
		return
	}
	if user.Role == role {
		c.JSON(http.StatusOK, gin.H{"message": "User already has this role.", "user": user})
		return
	}

	updates := map[string]any{"role": role}
	switch {
	case role == models.RoleOrganizer:
		updates["organizer_status"] = models.OrganizerApproved
	case user.OrganizerStatus == models.OrganizerApproved:
		updates["organizer_status"] = models.OrganizerNone
	}
	previous := user.Role
	if !updateUser(c, user, updates) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role changed from " + string(previous) + " to " + string(role) + ".",
		"user":    user,
	})
}

// UpdateUserStatus blocks or unblocks an account. A blocked user is
// rejected at login and on every authenticated request.
func UpdateUserStatus(c *gin.Context) {
	var req UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "is_active must be a boolean.")
		return
	}

	user, ok := loadOtherUser(c)
	if !ok {
		return
	}
	if !updateUser(c, user, map[string]any{"is_active": *req.IsActive}) {
		return
	}

	message := "User blocked."
	if *req.IsActive {
		message = "User unblocked."
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "user": user})
}

// DeleteUser soft-deletes an account. Its tickets and scan records stay.
func DeleteUser(c *gin.Context) {
	user, ok := loadOtherUser(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}
	if err := gormDB.Delete(user).Error; err != nil {
		internalError(c, "Failed to delete user.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted."})
}

func loadUserParam(c *gin.Context) (*models.User, bool) {
	userID, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user ID.")
		return nil, false
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return nil, false
	}

	var user models.User
	err = gormDB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return nil, false
	}
	if err != nil {
		internalError(c, "Error retrieving user.", err)
		return nil, false
	}
	return &user, true
}

// loadOtherUser is loadUserParam for writes: admins may not change their
// own account this way.
func loadOtherUser(c *gin.Context) (*models.User, bool) {
	identity, ok := requireIdentity(c)
	if !ok {
		return nil, false
	}
	user, ok := loadUserParam(c)
	if !ok {
		return nil, false
	}
	if user.ID == identity.UserID {
		helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "Admins cannot change their own account.", nil)
		return nil, false
	}
	return user, true
}

func updateUser(c *gin.Context, user *models.User, updates map[string]any) bool {
	gormDB, ok := requireDB(c)
	if !ok {
		return false
	}
	if err := gormDB.Model(user).Updates(updates).Error; err != nil {
		internalError(c, "Failed to update user.", err)
		return false
	}
	if err := gormDB.Where("id = ?", user.ID).First(user).Error; err != nil {
		internalError(c, "Failed to update user.", err)
		return false
	}
	return true
}
