package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollCycles counts completed polling cycles.
	PollCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forge_sparks_poll_cycles_total",
			Help: "Total number of completed polling cycles",
		},
	)

	// PollDuration measures how long a polling cycle takes.
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forge_sparks_poll_duration_seconds",
			Help:    "Polling cycle duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AccountErrors counts per-account polling failures by forge and
	// kind (auth|scopes|unexpected|transport).
	AccountErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_sparks_account_errors_total",
			Help: "Total number of per-account polling failures",
		},
		[]string{"forge", "kind"},
	)

	// Notifications tracks the size of the current notification list.
	Notifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_sparks_notifications",
			Help: "Number of notifications currently listed",
		},
	)

	// DesktopNotifications counts desktop notifications sent, by result
	// (sent|failed).
	DesktopNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_sparks_desktop_notifications_total",
			Help: "Total number of desktop notifications",
		},
		[]string{"result"},
	)

	// Resolutions counts mark-as-read attempts by result
	// (confirmed|rejected|error).
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_sparks_resolutions_total",
			Help: "Total number of mark-as-read attempts",
		},
		[]string{"result"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
