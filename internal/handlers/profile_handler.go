package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/store"
)

func GetProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	user, err := store.NewUserStore(gormDB).FindByID(c.Request.Context(), identity.UserID)
	if errors.Is(err, store.ErrNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}
	if err != nil {
		internalError(c, "Error retrieving user.", err)
		return
	}

	tickets, err := store.NewTicketStore(gormDB).ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		internalError(c, "Error retrieving tickets.", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"tickets": tickets,
	})
}
