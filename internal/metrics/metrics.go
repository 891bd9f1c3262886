package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the scheduling service
type Metrics struct {
	VisitsCreated     prometheus.Counter
	ConflictsRejected prometheus.Counter
	RemindersSent     prometheus.Counter
	Transitions       *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		VisitsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_created_total",
			Help:      "The total number of visits created",
		}),
		ConflictsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_rejected_total",
			Help:      "The total number of bookings rejected for overlapping an active visit",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "The total number of visit reminders recorded",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "The total number of status transitions applied",
		}, []string{"to"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Time taken by a reminder sweep",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
