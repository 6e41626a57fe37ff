package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mentorconnect"

var (
	// ConnectionRequests counts send attempts.
	// Labels: outcome (created, duplicate, rate_limited, error)
	ConnectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_requests_total",
		Help:      "Connection request send attempts by outcome",
	}, []string{"outcome"})

	// ConnectionTransitions counts request state changes.
	// Labels: status (accepted, rejected, cancelled, invalid)
	ConnectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_transitions_total",
		Help:      "Connection request transitions by resulting status",
	}, []string{"status"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notifications persisted by type",
	}, []string{"type"})

	NotificationQueryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_query_fallbacks_total",
		Help:      "Live sessions that degraded to the unordered notification query",
	})

	NotificationsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_pruned_total",
		Help:      "Notifications removed by the retention policy",
	})

	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sessions_active",
		Help:      "Live view sessions currently open",
	})

	// LiveSnapshots counts view re-derivations.
	// Labels: view (incoming_requests, outgoing_requests, connections, notifications)
	LiveSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_snapshots_total",
		Help:      "Live view snapshots derived",
	}, []string{"view"})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_publish_failures_total",
		Help:      "Change events that could not be published",
	}, []string{"channel"})
)
