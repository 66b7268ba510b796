package checkin

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/metrics"
	"github.com/farellandr/ticketgate/internal/models"
)

var (
	ErrNotFound        = errors.New("checkin: ticket not found")
	ErrAlreadyRedeemed = errors.New("checkin: ticket already redeemed")
	ErrNotRedeemable   = errors.New("checkin: ticket not redeemable")
	ErrForbidden       = errors.New("checkin: caller may not scan tickets")

	// ErrStoreUnavailable is the only failure a client may retry, and only
	// with backoff.
	ErrStoreUnavailable = errors.New("checkin: ticket store unavailable")
)

// AlreadyRedeemedError carries the earlier redemption. ScannedBy is nil when
// the caller's role may not see who scanned the ticket.
type AlreadyRedeemedError struct {
	TicketID  string
	ScannedAt time.Time
	ScannedBy *uuid.UUID
}

func (e *AlreadyRedeemedError) Error() string {
	return fmt.Sprintf("checkin: ticket %s already redeemed at %s", e.TicketID, e.ScannedAt.Format(time.RFC3339))
}

func (e *AlreadyRedeemedError) Is(target error) bool {
	return target == ErrAlreadyRedeemed
}

type NotRedeemableError struct {
	TicketID string
	Status   models.TicketStatus
	Reason   string
}

func (e *NotRedeemableError) Error() string {
	return fmt.Sprintf("checkin: ticket %s not redeemable: %s", e.TicketID, e.Reason)
}

func (e *NotRedeemableError) Is(target error) bool {
	return target == ErrNotRedeemable
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Outcome maps an engine result to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrAlreadyRedeemed):
		return metrics.OutcomeAlreadyRedeemed
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrNotRedeemable):
		return metrics.OutcomeNotRedeemable
	case errors.Is(err, ErrForbidden):
		return metrics.OutcomeForbidden
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeStoreUnavailable
	}
	return metrics.OutcomeError
}
