package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "face_attendance",
		Name:      "frames_received_total",
		Help:      "Total number of camera frames received from kiosks",
	}, []string{"kiosk_id"})

	IdentificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "face_attendance",
		Name:      "identification_outcomes_total",
		Help:      "Identification attempts by outcome reason",
	}, []string{"reason"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "face_attendance",
		Name:      "stage_duration_seconds",
		Help:      "Duration of recognition stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"stage"})

	AttendanceEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "face_attendance",
		Name:      "attendance_entries_total",
		Help:      "Recorded attendance entries by entry type and timing status",
	}, []string{"entry", "timing_status"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "face_attendance",
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by result",
	}, []string{"result"})

	VisitorCaptures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "face_attendance",
		Name:      "visitor_captures_total",
		Help:      "Unverified faces stored as visitor captures",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "face_attendance",
		Name:      "active_sessions",
		Help:      "Number of running kiosk recognition sessions",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "face_attendance",
		Name:      "job_runs_total",
		Help:      "Housekeeping job executions by job and result",
	}, []string{"job", "result"})

	CachedDescriptors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "face_attendance",
		Name:      "cached_descriptors",
		Help:      "Descriptors held in memory per company",
	}, []string{"company_id"})
)

// RegisterEventSubscribers exposes the number of open SSE streams. Call once.
func RegisterEventSubscribers(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "face_attendance",
		Name:      "event_subscribers",
		Help:      "Open kiosk feedback streams",
	}, func() float64 { return float64(count()) })
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
