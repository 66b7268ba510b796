package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
)

type BookTicketsRequest struct {
	EventID  uuid.UUID `json:"event_id" binding:"required"`
	Quantity int       `json:"quantity"`
}

type IssuedTicket struct {
	*models.Ticket
	QRCode string `json:"qr_code"`
}

func BookTickets(c *gin.Context) {
	var req BookTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	engine := middleware.GetBookingEngine(c)
	if engine == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Booking engine not configured.")
		return
	}

	tickets, err := engine.IssueTickets(c.Request.Context(), req.EventID, req.Quantity, identity.UserID)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	issued := make([]IssuedTicket, 0, len(tickets))
	for _, ticket := range tickets {
		qr, err := helpers.TicketQRDataURL(ticket.TicketID)
		if err != nil {
			internalError(c, "Failed to render QR code.", err)
			return
		}
		issued = append(issued, IssuedTicket{Ticket: ticket, QRCode: qr})
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Ticket(s) booked successfully.",
		"tickets": issued,
	})
}

func ListMyTickets(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	tickets, err := store.NewTicketStore(gormDB).ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		internalError(c, "Error retrieving tickets.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// GetTicketQR renders the holder's ticket as a PNG.
func GetTicketQR(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	gormDB, ok := requireDB(c)
	if !ok {
		return
	}

	ticket, err := store.NewTicketStore(gormDB).FindByTicketID(c.Request.Context(), strings.TrimSpace(c.Param("ticketId")))
	if errors.Is(err, store.ErrNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
		return
	}
	if err != nil {
		internalError(c, "Error retrieving ticket.", err)
		return
	}
	if ticket.UserID != identity.UserID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to view this ticket.")
		return
	}

	png, err := helpers.TicketQRCode(ticket.TicketID)
	if err != nil {
		internalError(c, "Failed to generate QR code.", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func CancelTicket(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	engine := middleware.GetBookingEngine(c)
	if engine == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Booking engine not configured.")
		return
	}

	ticket, err := engine.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("ticketId")), identity)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket cancelled successfully.",
		"ticket":  ticket,
	})
}

func respondBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidQuantity):
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrEventNotFound):
		helpers.RespondWithCode(c, http.StatusNotFound, helpers.CodeNotFound, "Event not found.", nil)
	case errors.Is(err, booking.ErrNotFound):
		helpers.RespondWithCode(c, http.StatusNotFound, helpers.CodeNotFound, "Ticket not found.", nil)
	case errors.Is(err, booking.ErrEventNotOnSale):
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Event is not open for booking.")
	case errors.Is(err, booking.ErrForbidden):
		helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "Not authorized to cancel this ticket.", nil)
	case errors.Is(err, booking.ErrAlreadyCancelled):
		helpers.RespondWithError(c, http.StatusConflict, "Ticket already cancelled.")
	case errors.Is(err, booking.ErrEventStarted):
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Past event tickets cannot be cancelled.")
	default:
		internalError(c, "Something went wrong while booking.", err)
	}
}
