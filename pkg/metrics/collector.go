// Package metrics exposes Prometheus instrumentation for the interview flow.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/interview-coach/internal/state"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_messages_total",
			Help: "Total number of handled messages labeled by the state they were processed in and status",
		},
		[]string{"state", "status"},
	)
	messageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_message_duration_seconds",
			Help:    "Duration of message handling in seconds, collaborator calls included",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"state"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_state_transitions_total",
			Help: "Total number of interview state transitions",
		},
		[]string{"from", "to"},
	)
	resetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_resets_total",
			Help: "Total number of interview resets by status",
		},
		[]string{"status"},
	)
	collaboratorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_collaborator_calls_total",
			Help: "Calls to injected collaborators by name and status",
		},
		[]string{"collaborator", "status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_active_sessions",
			Help: "Current number of stored interview sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "interview_sessions_by_state",
			Help: "Number of stored sessions per interview state",
		},
		[]string{"state"},
	)
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_jobs_total",
			Help: "Background maintenance tasks by type and status",
		},
		[]string{"task", "status"},
	)
	jobSweptItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_job_swept_items_total",
			Help: "Items removed by maintenance tasks",
		},
		[]string{"task"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMessage counts a handled message and records its duration.
func RecordMessage(st, status string, duration time.Duration) {
	st = orUnknown(st)
	messagesTotal.WithLabelValues(st, orUnknown(status)).Inc()
	messageDurationSeconds.WithLabelValues(st).Observe(duration.Seconds())
}

// RecordStateTransition tracks fired transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

func RecordReset(status string) {
	resetsTotal.WithLabelValues(orUnknown(status)).Inc()
}

func RecordCollaboratorCall(name, status string) {
	collaboratorCallsTotal.WithLabelValues(orUnknown(name), orUnknown(status)).Inc()
}

func RecordError(code, severity string) {
	errorsTotal.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}

func RecordHTTPRequest(route, method, code string, duration time.Duration) {
	route = orUnknown(route)
	httpRequestsTotal.WithLabelValues(route, method, code).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordJob counts a finished maintenance task and the items it removed.
func RecordJob(task, status string, removed int64) {
	task = orUnknown(task)
	jobsTotal.WithLabelValues(task, orUnknown(status)).Inc()
	if removed > 0 {
		jobSweptItems.WithLabelValues(task).Add(float64(removed))
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// StateCollector periodically counts stored sessions per state.
type StateCollector struct {
	fsm      state.StateMachine
	log      *slog.Logger
	interval time.Duration
}

// NewStateCollector builds a collector bound to the provided state machine.
func NewStateCollector(fsm state.StateMachine, log *slog.Logger, interval time.Duration) *StateCollector {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{fsm: fsm, log: log, interval: interval}
}

// Run refreshes the gauges every interval until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	for {
		if err := c.Collect(ctx); err != nil {
			c.log.Warn("session metrics collection failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

// Collect refreshes the gauges once.
func (c *StateCollector) Collect(ctx context.Context) error {
	sessions, err := c.fsm.Sessions(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(len(sessions)))

	counts := make(map[string]int, len(sessions))
	for _, s := range sessions {
		counts[orUnknown(string(s.State))]++
	}

	sessionsByState.Reset()
	for _, tracked := range state.All() {
		label := string(tracked)
		sessionsByState.WithLabelValues(label).Set(float64(counts[label]))
		delete(counts, label)
	}
	for label, count := range counts {
		sessionsByState.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
