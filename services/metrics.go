package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	refreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_refreshes_total",
			Help: "Total number of today-view refreshes executed",
		},
	)
	refreshFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_refresh_failures_total",
			Help: "Refreshes that fell back to the cached view",
		},
		[]string{"stage"},
	)
	reconcileFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_reconcile_failures_total",
			Help: "Historical reconciliations that could not be persisted",
		},
	)
	togglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_toggles_total",
			Help: "Challenge completion toggles by outcome",
		},
		[]string{"outcome"},
	)
	medalsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_medals_unlocked_total",
			Help: "Medals awarded",
		},
		[]string{"medal"},
	)
	pushesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_sent_total",
			Help: "Push notifications delivered to FCM",
		},
		[]string{"type"},
	)
	pushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_notifications_failed_total",
			Help: "Push notifications FCM rejected",
		},
	)
)

// RegisterMetrics registers the progression and push collectors. Call this from main.go
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		refreshesTotal,
		refreshFailures,
		reconcileFailures,
		togglesTotal,
		medalsUnlocked,
		pushesSent,
		pushFailures,
	)
}
