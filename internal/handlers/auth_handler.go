package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile" binding:"required,numeric,len=10"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	user, err := createAccount(gormDB, req.Username, req.Email, req.Mobile, req.Password, models.RoleUser, nil)
	if errors.Is(err, errAccountExists) {
		helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
		return
	}
	if err != nil {
		internalError(c, "Failed to create user.", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    user,
	})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	gormDB, ok := requireDB(c)
	if !ok {
		return
	}
	issuer := middleware.GetTokenIssuer(c)
	if issuer == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Token issuer not configured.")
		return
	}

	var user models.User
	if err := gormDB.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	if !user.IsActive {
		helpers.RespondWithError(c, http.StatusForbidden, "Account is inactive.")
		return
	}

	token, expiresAt, err := issuer.Issue(&user)
	if err != nil {
		internalError(c, "Failed to generate token.", err)
		return
	}

	now := time.Now()
	if err := gormDB.Model(&user).Update("last_login", now).Error; err != nil {
		middleware.GetLogger(c).Warn("record last login", "user_id", user.ID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

var errAccountExists = errors.New("account already exists")

func createAccount(gormDB *gorm.DB, username, email, mobile, password string, role models.Role, invitedBy *models.User) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	var count int64
	if err := gormDB.Unscoped().Model(&models.User{}).Where("email = ? OR username = ?", email, username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errAccountExists
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Mobile:   mobile,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	if invitedBy != nil {
		user.InvitedBy = &invitedBy.ID
	}

	if err := gormDB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errAccountExists
		}
		return nil, err
	}
	return user, nil
}
