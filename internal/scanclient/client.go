// Package scanclient is the venue-side client of the scanner API.
//
// Check-in requests are not idempotent at the transport level: a request
// that times out may still have redeemed the ticket. The client therefore
// retries only failures the server marks as transient, and after any
// ambiguous failure it asks the server what actually happened before
// reporting an error.
package scanclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/auth"
)

var (
	ErrNotFound        = errors.New("scanclient: invalid ticket")
	ErrAlreadyRedeemed = errors.New("scanclient: ticket already used")
	ErrNotRedeemable   = errors.New("scanclient: ticket not redeemable")
	ErrForbidden       = errors.New("scanclient: scanner not allowed")
	ErrUnauthorized    = errors.New("scanclient: scanner not authenticated")
	ErrRateLimited     = errors.New("scanclient: rate limited")
	ErrUnavailable     = errors.New("scanclient: ticket store unavailable")
)

type AlreadyRedeemedError struct {
	ScannedAt time.Time
	ScannedBy *uuid.UUID
}

func (e *AlreadyRedeemedError) Error() string {
	return fmt.Sprintf("scanclient: ticket already used at %s", e.ScannedAt.Format(time.RFC3339))
}

func (e *AlreadyRedeemedError) Is(target error) bool {
	return target == ErrAlreadyRedeemed
}

// Ticket is the redeemed ticket as reported by the server.
type Ticket struct {
	TicketID  string     `json:"ticket_id"`
	EventID   uuid.UUID  `json:"event_id"`
	Status    string     `json:"status"`
	IsScanned bool       `json:"is_scanned"`
	ScannedAt *time.Time `json:"scanned_at"`
	ScannedBy *uuid.UUID `json:"scanned_by"`
}

type Preview struct {
	TicketID   string     `json:"ticket_id"`
	EventID    uuid.UUID  `json:"event_id"`
	EventTitle string     `json:"event_title"`
	HolderName string     `json:"holder_name"`
	Status     string     `json:"status"`
	IsScanned  bool       `json:"is_scanned"`
	ScannedAt  *time.Time `json:"scanned_at"`
	ScannedBy  *uuid.UUID `json:"scanned_by"`
	Verdict    string     `json:"verdict"`
}

type errorBody struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

// transientError marks a failure after which the ticket may or may not have
// been redeemed.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

type Client struct {
	baseURL    string
	token      string
	scannerID  uuid.UUID
	httpClient *http.Client
	maxTries   uint
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxTries(n uint) Option {
	return func(c *Client) { c.maxTries = n }
}

func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client acting as scannerID, the user id the token was
// issued to.
func New(baseURL, token string, scannerID uuid.UUID, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		scannerID:  scannerID,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxTries:   5,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "scanclient")
	return c
}

// NewFromToken returns a client acting as the user the token was issued
// to, so recovery always compares against the identity the server sees.
func NewFromToken(baseURL, token string, opts ...Option) (*Client, error) {
	scannerID, err := auth.UserIDOf(token)
	if err != nil {
		return nil, fmt.Errorf("scanclient: %w", err)
	}
	return New(baseURL, token, scannerID, opts...), nil
}

// ScannerID is the identity recorded on tickets this client redeems.
func (c *Client) ScannerID() uuid.UUID {
	return c.scannerID
}

// Checkin redeems ticketID. Transient failures are retried with exponential
// backoff. If any attempt failed ambiguously, a later AlreadyRedeemed naming
// this scanner, or a preview showing the same, counts as success.
func (c *Client) Checkin(ctx context.Context, ticketID string) (*Ticket, error) {
	ambiguous := false

	op := func() (*Ticket, error) {
		ticket, err := c.checkinOnce(ctx, ticketID)
		if err == nil {
			return ticket, nil
		}
		var transient *transientError
		if errors.As(err, &transient) {
			ambiguous = true
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	ticket, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("check-in attempt failed, retrying", "ticket_id", ticketID, "retry_in", next, "error", err)
		}))
	if err == nil {
		return ticket, nil
	}
	if !ambiguous {
		return nil, err
	}

	var already *AlreadyRedeemedError
	if errors.As(err, &already) {
		if already.ScannedBy != nil && *already.ScannedBy == c.scannerID {
			return &Ticket{TicketID: ticketID, Status: "booked", IsScanned: true, ScannedAt: &already.ScannedAt, ScannedBy: already.ScannedBy}, nil
		}
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, err
	}
	preview, perr := c.Preview(ctx, ticketID)
	if perr != nil {
		return nil, err
	}
	if preview.IsScanned && preview.ScannedBy != nil && *preview.ScannedBy == c.scannerID {
		c.logger.Info("recovered check-in after ambiguous failure", "ticket_id", ticketID)
		return &Ticket{
			TicketID:  preview.TicketID,
			EventID:   preview.EventID,
			Status:    preview.Status,
			IsScanned: true,
			ScannedAt: preview.ScannedAt,
			ScannedBy: preview.ScannedBy,
		}, nil
	}
	return nil, err
}

func (c *Client) Preview(ctx context.Context, ticketID string) (*Preview, error) {
	var out struct {
		Ticket Preview `json:"ticket"`
	}
	if err := c.call(ctx, http.MethodGet, c.ticketPath(ticketID), &out); err != nil {
		return nil, err
	}
	return &out.Ticket, nil
}

func (c *Client) checkinOnce(ctx context.Context, ticketID string) (*Ticket, error) {
	var out struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := c.call(ctx, http.MethodPost, c.ticketPath(ticketID)+"/checkin", &out); err != nil {
		return nil, err
	}
	return &out.Ticket, nil
}

func (c *Client) ticketPath(ticketID string) string {
	return c.baseURL + "/v1/scanner/tickets/" + url.PathEscape(strings.TrimSpace(ticketID))
}

func (c *Client) call(ctx context.Context, method, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &transientError{err: err}
	}

	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return decodeError(resp.StatusCode, body)
}

func decodeError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	switch {
	case eb.Code == "ALREADY_REDEEMED" || status == http.StatusConflict:
		return alreadyRedeemed(eb.Details)
	case eb.Code == "NOT_FOUND" || status == http.StatusNotFound:
		return ErrNotFound
	case eb.Code == "NOT_REDEEMABLE" || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrNotRedeemable, eb.Message)
	case eb.Code == "FORBIDDEN" || status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case eb.Code == "STORE_UNAVAILABLE", status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return &transientError{err: fmt.Errorf("%w: status %d", ErrUnavailable, status)}
	}
	return fmt.Errorf("scanclient: unexpected status %d: %s", status, eb.Message)
}

func alreadyRedeemed(details map[string]any) error {
	out := &AlreadyRedeemedError{}
	if s, ok := details["scanned_at"].(string); ok {
		if at, err := time.Parse(time.RFC3339, s); err == nil {
			out.ScannedAt = at
		}
	}
	if s, ok := details["scanned_by"].(string); ok {
		if id, err := uuid.Parse(s); err == nil {
			out.ScannedBy = &id
		}
	}
	return out
}
