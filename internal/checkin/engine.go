// Package checkin redeems tickets at the venue entrance.
//
// A ticket moves from PENDING (not scanned) to REDEEMED (scanned) exactly
// once. The transition is delegated to the ticket store's conditional update,
// which the storage engine serializes per row, so the guarantee holds across
// any number of server processes sharing one database. The engine holds no
// locks of its own.
package checkin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/metrics"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
)

type Engine struct {
	tickets store.TicketStore
	events  store.EventStore
	users   store.UserStore

	revealScannerTo models.RoleSet
	now             func() time.Time
	logger          *slog.Logger
}

type Option func(*Engine)

// WithRevealScannerTo limits which caller roles see the identity that
// performed an earlier scan. Defaults to every scanning role.
func WithRevealScannerTo(roles models.RoleSet) Option {
	return func(e *Engine) { e.revealScannerTo = roles }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(tickets store.TicketStore, events store.EventStore, users store.UserStore, opts ...Option) *Engine {
	e := &Engine{
		tickets:         tickets,
		events:          events,
		users:           users,
		revealScannerTo: models.ScanRoles,
		now:             time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "checkin")
	return e
}

// Checkin redeems ticketID on behalf of caller. Among any number of racing
// calls for one ticket exactly one returns the redeemed ticket; the others
// get an *AlreadyRedeemedError. Every failure is final for the request.
func (e *Engine) Checkin(ctx context.Context, ticketID string, caller auth.Identity) (*models.Ticket, error) {
	start := time.Now()
	ticket, err := e.checkin(ctx, strings.TrimSpace(ticketID), caller)
	outcome := Outcome(err)
	metrics.ObserveCheckin(outcome, time.Since(start))

	switch outcome {
	case metrics.OutcomeSuccess:
		e.logger.Info("ticket redeemed", "ticket_id", ticket.TicketID, "event_id", ticket.EventID, "scanned_by", caller.UserID)
	case metrics.OutcomeStoreUnavailable, metrics.OutcomeError:
		e.logger.Error("check-in failed", "ticket_id", ticketID, "caller", caller.UserID, "error", err)
	default:
		e.logger.Info("check-in refused", "ticket_id", ticketID, "caller", caller.UserID, "outcome", outcome)
	}
	return ticket, err
}

func (e *Engine) checkin(ctx context.Context, ticketID string, caller auth.Identity) (*models.Ticket, error) {
	if !caller.Can(models.ScanRoles) {
		return nil, ErrForbidden
	}
	if ticketID == "" {
		return nil, ErrNotFound
	}

	current, err := e.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	// IsScanned never reverts, so a scanned read is already final. It wins
	// over a later cancel so staff see when the ticket was used.
	if current.IsScanned {
		return nil, e.alreadyRedeemed(current, caller)
	}
	if err := e.guard(ctx, current); err != nil {
		return nil, err
	}

	redeemed, ok, err := e.tickets.TryRedeem(ctx, ticketID, caller.UserID, e.now().UTC())
	if err != nil {
		return nil, unavailable(err)
	}
	if ok {
		return redeemed, nil
	}

	// Lost the race or the row vanished. This read only picks the error.
	existing, err := e.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if existing.IsScanned {
		return nil, e.alreadyRedeemed(existing, caller)
	}
	if !existing.Redeemable() {
		return nil, &NotRedeemableError{TicketID: existing.TicketID, Status: existing.Status, Reason: "ticket " + string(existing.Status)}
	}
	return nil, unavailable(errors.New("conditional update matched no row for an unscanned ticket"))
}

// guard applies the business rules to an unscanned ticket in order: its
// event must exist, then it must still be booked.
func (e *Engine) guard(ctx context.Context, ticket *models.Ticket) error {
	if _, err := e.events.FindByID(ctx, ticket.EventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotRedeemableError{TicketID: ticket.TicketID, Status: ticket.Status, Reason: "event not found"}
		}
		return unavailable(err)
	}
	if !ticket.Redeemable() {
		return &NotRedeemableError{TicketID: ticket.TicketID, Status: ticket.Status, Reason: "ticket " + string(ticket.Status)}
	}
	return nil
}

func (e *Engine) find(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := e.tickets.FindByTicketID(ctx, ticketID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return ticket, nil
}

func (e *Engine) alreadyRedeemed(ticket *models.Ticket, caller auth.Identity) error {
	out := &AlreadyRedeemedError{TicketID: ticket.TicketID}
	if ticket.ScannedAt != nil {
		out.ScannedAt = *ticket.ScannedAt
	}
	if caller.Can(e.revealScannerTo) {
		out.ScannedBy = ticket.ScannedBy
	}
	return out
}
