package api

import (
	"log/slog"
	"net/http"

	"github.com/Proton-105/interview-coach/internal/lifecycle"
	"github.com/Proton-105/interview-coach/internal/middleware"
	"github.com/Proton-105/interview-coach/pkg/logger"
	"github.com/Proton-105/interview-coach/pkg/metrics"
)

// NewRouter mounts the interview endpoints, the probes and /metrics.
func NewRouter(h *Handler, probes lifecycle.HealthChecker, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(pattern, fn))
	}

	handle("POST /api/interview", h.PostMessage)
	handle("DELETE /api/interview", h.DeleteInterview)
	handle("GET /api/interview/state", h.GetState)
	handle("GET /api/interview/summary", h.GetSummary)
	handle("GET /api/interview/history", h.GetHistory)

	handle("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Liveness(r.Context()); err != nil {
			writeJSON(w, log, http.StatusServiceUnavailable, envelope{Message: err.Error(), StatusCode: http.StatusServiceUnavailable})
			return
		}
		writeJSON(w, log, http.StatusOK, envelope{Success: true, Message: "ok", StatusCode: http.StatusOK})
	})
	handle("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		components, err := probes.Readiness(r.Context())
		if err != nil {
			writeJSON(w, log, http.StatusServiceUnavailable, envelope{
				Message:    err.Error(),
				StatusCode: http.StatusServiceUnavailable,
				Data:       components,
			})
			return
		}
		writeJSON(w, log, http.StatusOK, envelope{Success: true, Message: "ready", StatusCode: http.StatusOK, Data: components})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	var handler http.Handler = mux
	handler = middleware.Logging(log)(handler)
	handler = logger.Middleware(handler)
	handler = middleware.Recover(log)(handler)
	return handler
}
