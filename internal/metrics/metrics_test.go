package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCheckin(t *testing.T) {
	before := testutil.ToFloat64(checkinTotal.WithLabelValues(OutcomeAlreadyRedeemed))

	ObserveCheckin(OutcomeAlreadyRedeemed, 3*time.Millisecond)
	ObserveCheckin(OutcomeAlreadyRedeemed, 4*time.Millisecond)

	after := testutil.ToFloat64(checkinTotal.WithLabelValues(OutcomeAlreadyRedeemed))
	assert.Equal(t, before+2, after)
}

func TestTicketsIssued(t *testing.T) {
	before := testutil.ToFloat64(ticketsIssued)
	TicketsIssued(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ticketsIssued))
}

func TestObservePreview(t *testing.T) {
	before := testutil.ToFloat64(previewTotal.WithLabelValues(OutcomeNotFound))
	ObservePreview(OutcomeNotFound)
	assert.Equal(t, before+1, testutil.ToFloat64(previewTotal.WithLabelValues(OutcomeNotFound)))
}
