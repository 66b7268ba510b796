package checkin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/checkin"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
	"github.com/farellandr/ticketgate/internal/testutil"
)

func TestBookPreviewCheckinScenario(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tickets, events, users := store.NewTicketStore(db), store.NewEventStore(db), store.NewUserStore(db)

	organizer := testutil.CreateUser(t, db, models.RoleOrganizer)
	checker := testutil.CreateUser(t, db, models.RoleTicketChecker)
	buyer := testutil.CreateUser(t, db, models.RoleUser)
	event := testutil.CreateEvent(t, db, organizer.ID, "25.00")

	issued, err := booking.NewEngine(tickets, events).IssueTickets(ctx, event.ID, 1, buyer.ID)
	require.NoError(t, err)
	require.Len(t, issued, 1)
	ticketID := issued[0].TicketID

	engine := checkin.NewEngine(tickets, events, users)
	asOrganizer := auth.Identity{UserID: organizer.ID, Role: models.RoleOrganizer}
	asChecker := auth.Identity{UserID: checker.ID, Role: models.RoleTicketChecker}

	preview, err := engine.Preview(ctx, ticketID, asChecker)
	require.NoError(t, err)
	assert.False(t, preview.IsScanned)
	assert.Equal(t, checkin.VerdictValid, preview.Verdict)
	assert.Equal(t, buyer.Username, preview.HolderName)

	redeemed, err := engine.Checkin(ctx, ticketID, asOrganizer)
	require.NoError(t, err)
	assert.True(t, redeemed.IsScanned)
	require.NotNil(t, redeemed.ScannedBy)
	assert.Equal(t, organizer.ID, *redeemed.ScannedBy)

	_, err = engine.Checkin(ctx, ticketID, asChecker)
	var already *checkin.AlreadyRedeemedError
	require.ErrorAs(t, err, &already)
	require.NotNil(t, already.ScannedBy)
	assert.Equal(t, organizer.ID, *already.ScannedBy)
}
