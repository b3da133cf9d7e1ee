package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered      prometheus.Counter
	IncidentsCreated     prometheus.Counter
	TransitionsApplied   *prometheus.CounterVec
	TransitionsRejected  prometheus.Counter
	AssignmentsApplied   prometheus.Counter
	NotificationsQueued  prometheus.Counter
	NotificationsDropped prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streetwatch_users_registered_total",
			Help: "Total number of user registrations",
		}),
		IncidentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streetwatch_incidents_created_total",
			Help: "Total number of incidents reported",
		}),
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streetwatch_transitions_applied_total",
			Help: "Status transitions applied, labelled by target status",
		}, []string{"target"}),
		TransitionsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streetwatch_transitions_rejected_total",
			Help: "Status transitions rejected as illegal or unauthorized",
		}),
		AssignmentsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streetwatch_assignments_applied_total",
			Help: "Agent assignments applied to incidents",
		}),
		NotificationsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streetwatch_notifications_queued_total",
			Help: "Notifications handed to the async dispatcher",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streetwatch_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full",
		}),
	}
}
