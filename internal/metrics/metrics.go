package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Metrics owns a private registry so tests and multiple servers don't
// collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	started    *prometheus.CounterVec
	submitted  *prometheus.CounterVec
	redirected prometheus.Counter
	rejected   prometheus.Counter
	scores     prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Start calls by outcome (created or resumed)",
		}, []string{"outcome"}),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_attempts_submitted_total",
			Help: "Finalized attempts by pass/fail",
		}, []string{"passed"}),
		redirected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_submissions_redirected_total",
			Help: "Submissions against a locked attempt graded as a fresh one",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_autosave_rejected_total",
			Help: "Autosaves ignored because the attempt was already submitted",
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_attempt_score",
			Help:    "Distribution of submitted scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	m.reg.MustRegister(
		m.requests, m.duration,
		m.started, m.submitted, m.redirected, m.rejected, m.scores,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) AttemptStarted(resumed bool) {
	if resumed {
		m.started.WithLabelValues("resumed").Inc()
		return
	}
	m.started.WithLabelValues("created").Inc()
}

func (m *Metrics) AttemptSubmitted(score int, passed, redirected bool) {
	m.submitted.WithLabelValues(strconv.FormatBool(passed)).Inc()
	m.scores.Observe(float64(score))
	if redirected {
		m.redirected.Inc()
	}
}

func (m *Metrics) AutosaveRejected() { m.rejected.Inc() }

var _ quiz.Recorder = (*Metrics)(nil)
