// Package booking mints tickets against events and cancels them on behalf
// of their holders.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/metrics"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
)

var (
	ErrEventNotFound    = errors.New("booking: event not found")
	ErrEventNotOnSale   = errors.New("booking: event is not on sale")
	ErrInvalidQuantity  = errors.New("booking: invalid quantity")
	ErrNotFound         = errors.New("booking: ticket not found")
	ErrForbidden        = errors.New("booking: not allowed to manage this ticket")
	ErrAlreadyCancelled = errors.New("booking: ticket is no longer booked")
	ErrEventStarted     = errors.New("booking: event already started")
)

// Ticket ids are 122-bit random; a collision means a broken entropy source
// more often than bad luck, so the retry budget stays small.
const issueAttempts = 3

const DefaultMaxPerBooking = 10

type Engine struct {
	tickets store.TicketStore
	events  store.EventStore

	maxPerBooking int
	newID         func() string
	now           func() time.Time
	logger        *slog.Logger
}

type Option func(*Engine)

func WithMaxPerBooking(n int) Option {
	return func(e *Engine) { e.maxPerBooking = n }
}

// WithIDGenerator replaces the ticket identifier source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(tickets store.TicketStore, events store.EventStore, opts ...Option) *Engine {
	e := &Engine{
		tickets:       tickets,
		events:        events,
		maxPerBooking: DefaultMaxPerBooking,
		newID:         uuid.NewString,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "booking")
	return e
}

// IssueTickets creates one booked ticket per unit of quantity, all or none.
// Each ticket captures the event price at purchase time.
func (e *Engine) IssueTickets(ctx context.Context, eventID uuid.UUID, quantity int, buyerID uuid.UUID) ([]*models.Ticket, error) {
	if quantity < 1 || quantity > e.maxPerBooking {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidQuantity, e.maxPerBooking)
	}

	event, err := e.events.FindByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event.Status != models.EventActive {
		return nil, ErrEventNotOnSale
	}

	for attempt := 1; ; attempt++ {
		tickets := make([]*models.Ticket, quantity)
		for i := range tickets {
			tickets[i] = &models.Ticket{
				TicketID: e.newID(),
				EventID:  event.ID,
				UserID:   buyerID,
				Price:    event.Price,
				Status:   models.TicketBooked,
			}
		}

		err := e.tickets.CreateBatch(ctx, tickets)
		if err == nil {
			metrics.TicketsIssued(quantity)
			e.logger.Info("tickets issued", "event_id", event.ID, "buyer_id", buyerID, "quantity", quantity)
			return tickets, nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) || attempt == issueAttempts {
			return nil, fmt.Errorf("issue tickets: %w", err)
		}
		e.logger.Warn("ticket id collision, regenerating batch", "event_id", event.ID, "attempt", attempt)
	}
}

// Cancel moves a booked ticket to cancelled. The holder, the event's
// organizer and admins may cancel, until the event starts. Scan history is
// left untouched.
func (e *Engine) Cancel(ctx context.Context, ticketID string, caller auth.Identity) (*models.Ticket, error) {
	ticket, err := e.tickets.FindByTicketID(ctx, ticketID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	event, err := e.events.FindByID(ctx, ticket.EventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}

	if !mayManage(caller, ticket, event) {
		return nil, ErrForbidden
	}
	if ticket.Status != models.TicketBooked {
		return nil, ErrAlreadyCancelled
	}
	if !event.Date.After(e.now()) {
		return nil, ErrEventStarted
	}

	cancelled, ok, err := e.tickets.Cancel(ctx, ticket.TicketID)
	if err != nil {
		return nil, fmt.Errorf("cancel ticket: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyCancelled
	}
	e.logger.Info("ticket cancelled", "ticket_id", cancelled.TicketID, "by", caller.UserID)
	return cancelled, nil
}

func mayManage(caller auth.Identity, ticket *models.Ticket, event *models.Event) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOrganizer:
		if event.OrganizerID == caller.UserID {
			return true
		}
	}
	return ticket.UserID == caller.UserID
}
