package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the notification engine
type Metrics struct {
	NotificationsCreated prometheus.Counter
	NotificationsPushed  *prometheus.CounterVec
	EmailsSent           prometheus.Counter
	EmailsFailed         prometheus.Counter
	NotificationsPruned  prometheus.Counter
}

// New creates a new metrics instance. A nil registerer uses the default
// registry; tests pass their own to avoid duplicate registration.
func New(serviceName string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		NotificationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyd",
			Subsystem: serviceName,
			Name:      "notifications_created_total",
			Help:      "Total number of notification records created",
		}),
		NotificationsPushed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyd",
			Subsystem: serviceName,
			Name:      "notifications_pushed_total",
			Help:      "Total number of per-recipient deliveries by channel",
		}, []string{"channel"}),
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyd",
			Subsystem: serviceName,
			Name:      "emails_sent_total",
			Help:      "Total number of notification emails handed to the transport",
		}),
		EmailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyd",
			Subsystem: serviceName,
			Name:      "emails_failed_total",
			Help:      "Total number of failed notification email sends",
		}),
		NotificationsPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyd",
			Subsystem: serviceName,
			Name:      "notifications_pruned_total",
			Help:      "Total number of notification records removed by retention sweeps",
		}),
	}
}
