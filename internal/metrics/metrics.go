package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hackhub"

var (
	ProcessedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_processed_total", Help: "Total processed outbox events"},
	)
	FailedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_failed_total", Help: "Total failed outbox events"},
	)
	DLQEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_dlq_total", Help: "Total events inserted into DLQ"},
	)

	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "emails_sent_total", Help: "Emails delivered to the SMTP relay"},
		[]string{"template"},
	)
	EmailsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "emails_failed_total", Help: "Emails that failed after retries"},
		[]string{"template"},
	)
	Registrations = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "registrations_total", Help: "Accepted public form submissions"},
	)
	TeamsAutoCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "teams_auto_created_total", Help: "Teams created by auto team formation"},
	)

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status_code"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ProcessedEvents, FailedEvents, DLQEvents,
		EmailsSent, EmailsFailed, Registrations, TeamsAutoCreated,
		RequestDuration,
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records the request duration under the route pattern.
func Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}
}
