package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by check-in and preview.
const (
	OutcomeSuccess          = "success"
	OutcomeAlreadyRedeemed  = "already_redeemed"
	OutcomeNotFound         = "not_found"
	OutcomeNotRedeemable    = "not_redeemable"
	OutcomeForbidden        = "forbidden"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeError            = "error"
)

var (
	checkinTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketgate",
			Name:      "checkin_total",
			Help:      "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	checkinDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ticketgate",
			Name:      "checkin_duration_seconds",
			Help:      "Latency of check-in attempts",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	previewTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketgate",
			Name:      "preview_total",
			Help:      "Ticket previews by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticketgate",
			Name:      "tickets_issued_total",
			Help:      "Tickets minted by the booking engine",
		},
	)

	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticketgate",
			Name:      "scan_rate_limited_total",
			Help:      "Scanner requests rejected by the rate limiter",
		},
	)
)

func ObserveCheckin(outcome string, d time.Duration) {
	checkinTotal.WithLabelValues(outcome).Inc()
	checkinDuration.Observe(d.Seconds())
}

func ObservePreview(outcome string) {
	previewTotal.WithLabelValues(outcome).Inc()
}

func TicketsIssued(n int) {
	ticketsIssued.Add(float64(n))
}

func RateLimited() {
	rateLimited.Inc()
}
