package checkin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/metrics"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
)

type Verdict string

const (
	VerdictValid         Verdict = "valid"
	VerdictAlreadyUsed   Verdict = "already_used"
	VerdictNotRedeemable Verdict = "not_redeemable"
)

// Preview is what a scanner shows before the operator admits the holder.
// It is a snapshot and carries no reservation.
type Preview struct {
	TicketID   string              `json:"ticket_id"`
	EventID    uuid.UUID           `json:"event_id"`
	EventTitle string              `json:"event_title,omitempty"`
	EventDate  *time.Time          `json:"event_date,omitempty"`
	HolderName string              `json:"holder_name,omitempty"`
	Status     models.TicketStatus `json:"status"`
	IsScanned  bool                `json:"is_scanned"`
	ScannedAt  *time.Time          `json:"scanned_at,omitempty"`
	ScannedBy  *uuid.UUID          `json:"scanned_by,omitempty"`
	Verdict    Verdict             `json:"verdict"`
}

// Preview reads a ticket without changing it. The verdict follows the same
// rule order as Checkin.
func (e *Engine) Preview(ctx context.Context, ticketID string, caller auth.Identity) (*Preview, error) {
	p, err := e.preview(ctx, strings.TrimSpace(ticketID), caller)
	metrics.ObservePreview(Outcome(err))
	if err != nil && errors.Is(err, ErrStoreUnavailable) {
		e.logger.Error("preview failed", "ticket_id", ticketID, "error", err)
	}
	return p, err
}

func (e *Engine) preview(ctx context.Context, ticketID string, caller auth.Identity) (*Preview, error) {
	if !caller.Can(models.ScanRoles) {
		return nil, ErrForbidden
	}
	if ticketID == "" {
		return nil, ErrNotFound
	}

	ticket, err := e.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		TicketID:  ticket.TicketID,
		EventID:   ticket.EventID,
		Status:    ticket.Status,
		IsScanned: ticket.IsScanned,
		ScannedAt: ticket.ScannedAt,
	}
	if caller.Can(e.revealScannerTo) {
		p.ScannedBy = ticket.ScannedBy
	}

	eventFound := true
	event, err := e.events.FindByID(ctx, ticket.EventID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		eventFound = false
	case err != nil:
		return nil, unavailable(err)
	default:
		p.EventTitle = event.Title
		date := event.Date
		p.EventDate = &date
	}

	holder, err := e.users.FindByID(ctx, ticket.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, unavailable(err)
	default:
		p.HolderName = holder.Username
	}

	switch {
	case ticket.IsScanned:
		p.Verdict = VerdictAlreadyUsed
	case !eventFound || !ticket.Redeemable():
		p.Verdict = VerdictNotRedeemable
	default:
		p.Verdict = VerdictValid
	}
	return p, nil
}
