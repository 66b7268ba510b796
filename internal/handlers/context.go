package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
)

func requireDB(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return nil, false
	}
	return db.WithContext(c.Request.Context()), true
}

func requireIdentity(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
	}
	return identity, ok
}

func internalError(c *gin.Context, message string, err error) {
	middleware.GetLogger(c).Error(message, "component", "http", "path", c.FullPath(), "error", err)
	helpers.RespondWithError(c, http.StatusInternalServerError, message)
}
