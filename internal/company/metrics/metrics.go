package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for company reconciliation.
type Metrics struct {
	ReconcileWins          *prometheus.CounterVec
	NotificationsPublished prometheus.Counter
	NotificationsFailed    prometheus.Counter
	LegacyPushFailed       prometheus.Counter
	OperationDuration      *prometheus.HistogramVec
}

// New registers the company metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReconcileWins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orgprofile_reconcile_wins_total",
			Help: "Reconciled reads by the source whose record won",
		}, []string{"source"}),
		NotificationsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgprofile_notifications_published_total",
			Help: "Company change notifications published",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgprofile_notifications_failed_total",
			Help: "Company change notifications that could not be published",
		}),
		LegacyPushFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgprofile_legacy_push_failed_total",
			Help: "Updates that could not be forwarded to the legacy system",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orgprofile_company_operation_duration_seconds",
			Help:    "Duration of company service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementReconcileWin(source string) {
	m.ReconcileWins.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementNotificationPublished() {
	m.NotificationsPublished.Inc()
}

func (m *Metrics) IncrementNotificationFailed() {
	m.NotificationsFailed.Inc()
}

func (m *Metrics) IncrementLegacyPushFailed() {
	m.LegacyPushFailed.Inc()
}

// ObserveOperation records the duration of operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
