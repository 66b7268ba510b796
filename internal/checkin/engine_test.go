package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
	"github.com/farellandr/ticketgate/internal/testutil"
)

var doorsOpen = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	engine    *Engine
	organizer *models.User
	checker   *models.User
	holder    *models.User
	event     *models.Event
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:        db,
		organizer: testutil.CreateUser(t, db, models.RoleOrganizer),
		checker:   testutil.CreateUser(t, db, models.RoleTicketChecker),
		holder:    testutil.CreateUser(t, db, models.RoleUser),
	}
	f.event = testutil.CreateEvent(t, db, f.organizer.ID, "25.00")
	opts = append([]Option{WithClock(func() time.Time { return doorsOpen })}, opts...)
	f.engine = NewEngine(store.NewTicketStore(db), store.NewEventStore(db), store.NewUserStore(db), opts...)
	return f
}

func identity(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (f *fixture) ticket(t *testing.T, status models.TicketStatus) *models.Ticket {
	return testutil.CreateTicket(t, f.db, f.event.ID, f.holder.ID, status)
}

func TestCheckin_RedeemsOnce(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketBooked)
	ctx := context.Background()

	redeemed, err := f.engine.Checkin(ctx, ticket.TicketID, identity(f.organizer))
	require.NoError(t, err)
	assert.True(t, redeemed.IsScanned)
	require.NotNil(t, redeemed.ScannedBy)
	assert.Equal(t, f.organizer.ID, *redeemed.ScannedBy)
	require.NotNil(t, redeemed.ScannedAt)
	assert.WithinDuration(t, doorsOpen, *redeemed.ScannedAt, time.Second)

	_, err = f.engine.Checkin(ctx, ticket.TicketID, identity(f.organizer))
	require.ErrorIs(t, err, ErrAlreadyRedeemed)

	var already *AlreadyRedeemedError
	require.ErrorAs(t, err, &already)
	require.NotNil(t, already.ScannedBy)
	assert.Equal(t, f.organizer.ID, *already.ScannedBy)
	assert.WithinDuration(t, doorsOpen, already.ScannedAt, time.Second)
}

func TestCheckin_PersistsAllScanFields(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketBooked)

	_, err := f.engine.Checkin(context.Background(), ticket.TicketID, identity(f.checker))
	require.NoError(t, err)

	stored, err := store.NewTicketStore(f.db).FindByTicketID(context.Background(), ticket.TicketID)
	require.NoError(t, err)
	assert.True(t, stored.IsScanned)
	require.NotNil(t, stored.ScannedAt)
	require.NotNil(t, stored.ScannedBy)
	assert.Equal(t, f.checker.ID, *stored.ScannedBy)
	assert.Equal(t, models.TicketBooked, stored.Status)
}

func TestCheckin_ConcurrentScannersAdmitOnce(t *testing.T) {
	for _, n := range []int{2, 10, 100} {
		t.Run(fmt.Sprintf("scanners=%d", n), func(t *testing.T) {
			f := newFixture(t)
			ticket := f.ticket(t, models.TicketBooked)
			admin := testutil.CreateUser(t, f.db, models.RoleAdmin)
			callers := []*models.User{f.organizer, f.checker, admin}

			var (
				wg      sync.WaitGroup
				start   = make(chan struct{})
				errs    = make([]error, n)
				winners = make([]*models.Ticket, n)
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					winners[i], errs[i] = f.engine.Checkin(context.Background(), ticket.TicketID, identity(callers[i%len(callers)]))
				}(i)
			}
			close(start)
			wg.Wait()

			var successes int
			var winner uuid.UUID
			for i, err := range errs {
				if err == nil {
					successes++
					winner = *winners[i].ScannedBy
					continue
				}
				assert.ErrorIs(t, err, ErrAlreadyRedeemed, "scanner %d", i)
			}
			require.Equal(t, 1, successes)

			stored, err := store.NewTicketStore(f.db).FindByTicketID(context.Background(), ticket.TicketID)
			require.NoError(t, err)
			assert.True(t, stored.IsScanned)
			assert.Equal(t, winner, *stored.ScannedBy)

			for _, err := range errs {
				var already *AlreadyRedeemedError
				if errors.As(err, &already) {
					assert.Equal(t, winner, *already.ScannedBy)
				}
			}
		})
	}
}

func TestCheckin_UnknownTicket(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Checkin(context.Background(), uuid.NewString(), identity(f.checker))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.Checkin(context.Background(), "   ", identity(f.checker))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckin_TrimsTicketID(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketBooked)

	_, err := f.engine.Checkin(context.Background(), "  "+ticket.TicketID+"\n", identity(f.checker))
	assert.NoError(t, err)
}

func TestCheckin_CancelledTicketIsNotRedeemable(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketCancelled)

	_, err := f.engine.Checkin(context.Background(), ticket.TicketID, identity(f.checker))
	require.ErrorIs(t, err, ErrNotRedeemable)

	var notRedeemable *NotRedeemableError
	require.ErrorAs(t, err, &notRedeemable)
	assert.Equal(t, models.TicketCancelled, notRedeemable.Status)

	stored, err := store.NewTicketStore(f.db).FindByTicketID(context.Background(), ticket.TicketID)
	require.NoError(t, err)
	assert.False(t, stored.IsScanned)
}

func TestCheckin_DeletedEventIsNotRedeemable(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketBooked)
	require.NoError(t, f.db.Delete(f.event).Error)

	_, err := f.engine.Checkin(context.Background(), ticket.TicketID, identity(f.organizer))
	require.ErrorIs(t, err, ErrNotRedeemable)

	var notRedeemable *NotRedeemableError
	require.ErrorAs(t, err, &notRedeemable)
	assert.Equal(t, "event not found", notRedeemable.Reason)
}

func TestCheckin_RedactsScannerForRolesOutsidePolicy(t *testing.T) {
	f := newFixture(t, WithRevealScannerTo(models.StaffRoles))
	ticket := f.ticket(t, models.TicketBooked)
	ctx := context.Background()

	_, err := f.engine.Checkin(ctx, ticket.TicketID, identity(f.organizer))
	require.NoError(t, err)

	var already *AlreadyRedeemedError
	_, err = f.engine.Checkin(ctx, ticket.TicketID, identity(f.checker))
	require.ErrorAs(t, err, &already)
	assert.Nil(t, already.ScannedBy)
	assert.WithinDuration(t, doorsOpen, already.ScannedAt, time.Second)

	_, err = f.engine.Checkin(ctx, ticket.TicketID, identity(f.organizer))
	require.ErrorAs(t, err, &already)
	require.NotNil(t, already.ScannedBy)
	assert.Equal(t, f.organizer.ID, *already.ScannedBy)
}

func TestPreview_DoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketBooked)
	ctx := context.Background()
	tickets := store.NewTicketStore(f.db)

	for range 5 {
		p, err := f.engine.Preview(ctx, ticket.TicketID, identity(f.checker))
		require.NoError(t, err)
		assert.Equal(t, VerdictValid, p.Verdict)
		assert.Equal(t, f.event.Title, p.EventTitle)
		assert.Equal(t, f.holder.Username, p.HolderName)
		assert.False(t, p.IsScanned)
		assert.Nil(t, p.ScannedAt)
		assert.Nil(t, p.ScannedBy)

		stored, err := tickets.FindByTicketID(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.False(t, stored.IsScanned)
		assert.Nil(t, stored.ScannedAt)
		assert.Nil(t, stored.ScannedBy)
		assert.Equal(t, models.TicketBooked, stored.Status)
	}

	_, err := f.engine.Checkin(ctx, ticket.TicketID, identity(f.checker))
	require.NoError(t, err)
}

func TestPreview_Verdicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scanned := f.ticket(t, models.TicketBooked)
	_, err := f.engine.Checkin(ctx, scanned.TicketID, identity(f.organizer))
	require.NoError(t, err)

	p, err := f.engine.Preview(ctx, scanned.TicketID, identity(f.checker))
	require.NoError(t, err)
	assert.Equal(t, VerdictAlreadyUsed, p.Verdict)
	require.NotNil(t, p.ScannedBy)
	assert.Equal(t, f.organizer.ID, *p.ScannedBy)

	cancelled := f.ticket(t, models.TicketCancelled)
	p, err = f.engine.Preview(ctx, cancelled.TicketID, identity(f.checker))
	require.NoError(t, err)
	assert.Equal(t, VerdictNotRedeemable, p.Verdict)

	_, err = f.engine.Preview(ctx, uuid.NewString(), identity(f.checker))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckin_ScannedThenCancelledReportsPriorScan(t *testing.T) {
	f := newFixture(t)
	ticket := f.ticket(t, models.TicketBooked)
	ctx := context.Background()

	_, err := f.engine.Checkin(ctx, ticket.TicketID, identity(f.organizer))
	require.NoError(t, err)
	_, ok, err := store.NewTicketStore(f.db).Cancel(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.engine.Checkin(ctx, ticket.TicketID, identity(f.checker))
	var already *AlreadyRedeemedError
	require.ErrorAs(t, err, &already)
	assert.NotErrorIs(t, err, ErrNotRedeemable)
	require.NotNil(t, already.ScannedBy)
	assert.Equal(t, f.organizer.ID, *already.ScannedBy)
	assert.WithinDuration(t, doorsOpen, already.ScannedAt, time.Second)

	p, err := f.engine.Preview(ctx, ticket.TicketID, identity(f.checker))
	require.NoError(t, err)
	assert.Equal(t, VerdictAlreadyUsed, p.Verdict)
	assert.Equal(t, models.TicketCancelled, p.Status)
}

// fakeTickets serves a single ticket and counts every store call.
type fakeTickets struct {
	mu        sync.Mutex
	ticket    *models.Ticket
	findErr   error
	redeemErr error
	onRedeem  func(*models.Ticket)
	calls     int
}

func (s *fakeTickets) hit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

func (s *fakeTickets) Create(context.Context, *models.Ticket) error { s.hit(); return nil }

func (s *fakeTickets) CreateBatch(context.Context, []*models.Ticket) error { s.hit(); return nil }

func (s *fakeTickets) FindByTicketID(_ context.Context, id string) (*models.Ticket, error) {
	s.hit()
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.ticket == nil || s.ticket.TicketID != id {
		return nil, store.ErrNotFound
	}
	cp := *s.ticket
	return &cp, nil
}

func (s *fakeTickets) TryRedeem(_ context.Context, _ string, by uuid.UUID, now time.Time) (*models.Ticket, bool, error) {
	s.hit()
	if s.redeemErr != nil {
		return nil, false, s.redeemErr
	}
	if s.onRedeem != nil {
		s.onRedeem(s.ticket)
	}
	if s.ticket.IsScanned || s.ticket.Status != models.TicketBooked {
		return nil, false, nil
	}
	s.ticket.IsScanned, s.ticket.ScannedAt, s.ticket.ScannedBy = true, &now, &by
	cp := *s.ticket
	return &cp, true, nil
}

func (s *fakeTickets) Cancel(context.Context, string) (*models.Ticket, bool, error) {
	s.hit()
	return nil, false, nil
}

func (s *fakeTickets) ListByUser(context.Context, uuid.UUID) ([]models.Ticket, error) {
	s.hit()
	return nil, nil
}

func (s *fakeTickets) EventStats(context.Context, uuid.UUID) (store.EventStats, error) {
	s.hit()
	return store.EventStats{}, nil
}

type fakeEvents struct {
	err   error
	calls int
}

func (s *fakeEvents) FindByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Event{ID: id, Title: "Launch Night", Status: models.EventActive}, nil
}

type fakeUsers struct{ calls int }

func (s *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.calls++
	return &models.User{ID: id, Username: "holder"}, nil
}

func bookedTicket() *models.Ticket {
	return &models.Ticket{TicketID: uuid.NewString(), EventID: uuid.New(), UserID: uuid.New(), Status: models.TicketBooked}
}

func TestCheckin_ForbiddenBeforeStoreAccess(t *testing.T) {
	tickets, events, users := &fakeTickets{ticket: bookedTicket()}, &fakeEvents{}, &fakeUsers{}
	engine := NewEngine(tickets, events, users)
	buyer := auth.Identity{UserID: uuid.New(), Role: models.RoleUser}

	_, err := engine.Checkin(context.Background(), tickets.ticket.TicketID, buyer)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = engine.Preview(context.Background(), tickets.ticket.TicketID, buyer)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Zero(t, tickets.calls)
	assert.Zero(t, events.calls)
	assert.Zero(t, users.calls)
	assert.False(t, tickets.ticket.IsScanned)
}

func TestCheckin_StoreUnavailable(t *testing.T) {
	down := errors.New("connection refused")
	checker := auth.Identity{UserID: uuid.New(), Role: models.RoleTicketChecker}

	t.Run("read", func(t *testing.T) {
		tickets := &fakeTickets{ticket: bookedTicket(), findErr: down}
		engine := NewEngine(tickets, &fakeEvents{}, &fakeUsers{})

		_, err := engine.Checkin(context.Background(), tickets.ticket.TicketID, checker)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, down)
	})

	t.Run("conditional update", func(t *testing.T) {
		tickets := &fakeTickets{ticket: bookedTicket(), redeemErr: down}
		engine := NewEngine(tickets, &fakeEvents{}, &fakeUsers{})

		_, err := engine.Checkin(context.Background(), tickets.ticket.TicketID, checker)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, "store_unavailable", Outcome(err))
	})

	t.Run("event lookup", func(t *testing.T) {
		tickets := &fakeTickets{ticket: bookedTicket()}
		engine := NewEngine(tickets, &fakeEvents{err: down}, &fakeUsers{})

		_, err := engine.Checkin(context.Background(), tickets.ticket.TicketID, checker)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.False(t, tickets.ticket.IsScanned)
	})
}

func TestCheckin_LosingTheRaceReportsWinner(t *testing.T) {
	winner := uuid.New()
	scannedAt := doorsOpen.Add(-time.Minute)
	tickets := &fakeTickets{
		ticket: bookedTicket(),
		onRedeem: func(t *models.Ticket) {
			t.IsScanned, t.ScannedAt, t.ScannedBy = true, &scannedAt, &winner
		},
	}
	engine := NewEngine(tickets, &fakeEvents{}, &fakeUsers{})

	_, err := engine.Checkin(context.Background(), tickets.ticket.TicketID, auth.Identity{UserID: uuid.New(), Role: models.RoleAdmin})

	var already *AlreadyRedeemedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, winner, *already.ScannedBy)
	assert.Equal(t, scannedAt, already.ScannedAt)
}

func TestCheckin_CancelledDuringRace(t *testing.T) {
	tickets := &fakeTickets{
		ticket: bookedTicket(),
		onRedeem: func(t *models.Ticket) {
			t.Status = models.TicketCancelled
		},
	}
	engine := NewEngine(tickets, &fakeEvents{}, &fakeUsers{})

	_, err := engine.Checkin(context.Background(), tickets.ticket.TicketID, auth.Identity{UserID: uuid.New(), Role: models.RoleTicketChecker})

	var notRedeemable *NotRedeemableError
	require.ErrorAs(t, err, &notRedeemable)
	assert.Equal(t, models.TicketCancelled, notRedeemable.Status)
	assert.False(t, tickets.ticket.IsScanned)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "already_redeemed", Outcome(&AlreadyRedeemedError{}))
	assert.Equal(t, "not_redeemable", Outcome(&NotRedeemableError{}))
	assert.Equal(t, "not_found", Outcome(fmt.Errorf("wrap: %w", ErrNotFound)))
	assert.Equal(t, "forbidden", Outcome(ErrForbidden))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}
