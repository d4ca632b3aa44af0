// Package middleware holds the HTTP and Telegram middleware shared by the
// API and the bot.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/pkg/logger"
)

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Logging creates an HTTP middleware that logs request and response details.
func Logging(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			log.InfoContext(r.Context(),
				"handled http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.code()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

const requestContextKey = "request_ctx"

// RequestContext returns the context attached to a Telegram update by
// UpdateContext, or a background context.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// UpdateContext attaches a request context with a fresh correlation id to
// every update.
func UpdateContext(base context.Context) telebot.MiddlewareFunc {
	if base == nil {
		base = context.Background()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			c.Set(requestContextKey, logger.WithCorrelationID(base, ""))
			return next(c)
		}
	}
}
