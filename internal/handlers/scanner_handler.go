package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/checkin"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
)

// PreviewTicket shows a scanner what it is about to admit. It changes
// nothing.
func PreviewTicket(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	engine := middleware.GetCheckinEngine(c)
	if engine == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Check-in engine not configured.")
		return
	}

	preview, err := engine.Preview(c.Request.Context(), c.Param("ticketId"), identity)
	if err != nil {
		RespondCheckinError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": preview})
}

func CheckinTicket(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	engine := middleware.GetCheckinEngine(c)
	if engine == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Check-in engine not configured.")
		return
	}

	ticket, err := engine.Checkin(c.Request.Context(), c.Param("ticketId"), identity)
	if err != nil {
		RespondCheckinError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket checked in.",
		"ticket":  ticket,
	})
}

// RespondCheckinError keeps every check-in outcome distinct on the wire.
// Unexpected errors are logged and answered without detail.
func RespondCheckinError(c *gin.Context, err error) {
	var (
		already       *checkin.AlreadyRedeemedError
		notRedeemable *checkin.NotRedeemableError
	)
	switch {
	case errors.As(err, &already):
		details := map[string]any{}
		if !already.ScannedAt.IsZero() {
			details["scanned_at"] = already.ScannedAt.UTC().Format(time.RFC3339)
		}
		if already.ScannedBy != nil {
			details["scanned_by"] = already.ScannedBy.String()
		}
		helpers.RespondWithCode(c, http.StatusConflict, helpers.CodeAlreadyRedeemed, "Ticket already used.", details)
	case errors.Is(err, checkin.ErrAlreadyRedeemed):
		helpers.RespondWithCode(c, http.StatusConflict, helpers.CodeAlreadyRedeemed, "Ticket already used.", nil)
	case errors.As(err, &notRedeemable):
		helpers.RespondWithCode(c, http.StatusUnprocessableEntity, helpers.CodeNotRedeemable, notRedeemableMessage(notRedeemable),
			map[string]any{"status": notRedeemable.Status, "reason": notRedeemable.Reason})
	case errors.Is(err, checkin.ErrNotRedeemable):
		helpers.RespondWithCode(c, http.StatusUnprocessableEntity, helpers.CodeNotRedeemable, "Ticket cannot be redeemed.", nil)
	case errors.Is(err, checkin.ErrNotFound):
		helpers.RespondWithCode(c, http.StatusNotFound, helpers.CodeNotFound, "Invalid ticket.", nil)
	case errors.Is(err, checkin.ErrForbidden):
		helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "You are not allowed to scan tickets.", nil)
	case errors.Is(err, checkin.ErrStoreUnavailable):
		c.Header("Retry-After", "1")
		helpers.RespondWithCode(c, http.StatusServiceUnavailable, helpers.CodeStoreUnavailable, "Ticket store unavailable. Retry shortly.", nil)
	default:
		internalError(c, "Unexpected check-in failure.", err)
	}
}

func notRedeemableMessage(err *checkin.NotRedeemableError) string {
	if err.Reason == "event not found" {
		return "Event no longer exists."
	}
	return "Ticket " + string(err.Status) + "."
}
