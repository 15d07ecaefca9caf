package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPDuration *prometheus.HistogramVec

	CheckInsRecorded   prometheus.Counter
	CheckOutsRecorded  prometheus.Counter
	GeofenceDenials    prometheus.Counter
	BiometricEnrolled  prometheus.Counter
	BiometricVerified  prometheus.Counter
	BiometricRejected  *prometheus.CounterVec
	AuditEventsDropped prometheus.Counter
	AuditPublishErrors prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hrgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		CheckInsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_checkins_recorded_total",
			Help: "Total attendance check-ins persisted",
		}),
		CheckOutsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_checkouts_recorded_total",
			Help: "Total attendance check-outs persisted",
		}),
		GeofenceDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_geofence_denials_total",
			Help: "Positions rejected by the geofence validator",
		}),
		BiometricEnrolled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_biometric_enrollments_total",
			Help: "Biometric credentials enrolled",
		}),
		BiometricVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_biometric_verifications_total",
			Help: "Successful biometric assertions",
		}),
		BiometricRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hrgate_biometric_rejections_total",
			Help: "Rejected biometric ceremonies by reason",
		}, []string{"reason"}),
		AuditEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_audit_events_dropped_total",
			Help: "Audit events dropped because the inbox was full",
		}),
		AuditPublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hrgate_audit_publish_errors_total",
			Help: "Audit sink publish failures",
		}),
	}
}
