package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Reminder lifecycle
	RemindersStarted  prometheus.Counter
	RemindersResolved prometheus.Counter
	RemindersCanceled prometheus.Counter
	Dismissals        prometheus.Counter
	EscalationLevel   *prometheus.GaugeVec

	// Notification emission
	NotificationsEmitted    *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec

	// Detector
	DetectorPassDuration prometheus.Histogram
	DetectorDueFound     prometheus.Counter

	// Deferred dispatcher
	DeferredScheduled  prometheus.Counter
	DeferredDispatched prometheus.Counter
	DeferredFailed     prometheus.Counter
	DeferredCanceled   prometheus.Counter

	// Storage
	StorageOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		RemindersStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_started_total",
			Help:      "Total number of reminder sessions opened",
		}),
		RemindersResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_resolved_total",
			Help:      "Total number of reminder sessions resolved by confirmation",
		}),
		RemindersCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_canceled_total",
			Help:      "Total number of reminder sessions torn down without confirmation",
		}),
		Dismissals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminder_dismissals_total",
			Help:      "Total number of not-yet dismissals",
		}),
		EscalationLevel: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "escalation_level",
			Help:      "Current escalation level per open session",
		}, []string{"medicine"}),

		NotificationsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_emitted_total",
			Help:      "Notification bursts emitted, by channel",
		}, []string{"channel"}),
		NotificationsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_suppressed_total",
			Help:      "Notification bursts suppressed by floor or spacing limits",
		}, []string{"channel"}),

		DetectorPassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detector_pass_duration_seconds",
			Help:      "Time spent computing the due set",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		DetectorDueFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detector_due_found_total",
			Help:      "New due reminders produced by the detector",
		}),

		DeferredScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deferred_notifications_scheduled_total",
			Help:      "Deferred notifications written to the queue",
		}),
		DeferredDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deferred_notifications_dispatched_total",
			Help:      "Deferred notifications published when their fire time arrived",
		}),
		DeferredFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deferred_notifications_failed_total",
			Help:      "Deferred notifications that failed to publish after retries",
		}),
		DeferredCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deferred_notifications_canceled_total",
			Help:      "Deferred notifications retracted before delivery",
		}),

		StorageOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_operations_total",
			Help:      "Storage operations by name and status",
		}, []string{"operation", "status"}),
	}
}
