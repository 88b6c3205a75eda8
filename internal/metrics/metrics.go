package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "valetcore",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted by intake.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valetcore",
			Name:      "status_transitions_total",
			Help:      "Applied booking status transitions by target status.",
		},
		[]string{"target"},
	)

	syncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valetcore",
			Name:      "sync_passes_total",
			Help:      "Reconciliation passes by result (ok, error, skipped).",
		},
		[]string{"result"},
	)

	archivedBookings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "valetcore",
			Name:      "bookings_archived_total",
			Help:      "Bookings moved into the archive partition.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valetcore",
			Name:      "notifications_sent_total",
			Help:      "Customer notifications delivered by transport.",
		},
		[]string{"transport"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valetcore",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, transitions, syncPasses, archivedBookings, notifications, httpRequests)
	})
}

// IncCreated counts an accepted intake booking.
func IncCreated() {
	bookingsCreated.Inc()
}

// IncTransition counts an applied transition into the target status.
func IncTransition(target string) {
	transitions.WithLabelValues(target).Inc()
}

// IncSyncPass counts a reconciliation pass outcome.
func IncSyncPass(result string) {
	syncPasses.WithLabelValues(result).Inc()
}

// IncArchived counts a booking swept into the archive.
func IncArchived() {
	archivedBookings.Inc()
}

// IncNotification counts a delivered customer notification.
func IncNotification(transport string) {
	notifications.WithLabelValues(transport).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
