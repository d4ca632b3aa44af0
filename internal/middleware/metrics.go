package middleware

import (
	"net/http"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/pkg/metrics"
)

// Metrics reports duration and status of HTTP requests. route should be the
// registered pattern, not the raw path, to keep label cardinality bounded.
func Metrics(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(rec.code()), time.Since(start))
	})
}

// BotMetrics measures execution time and status for bot handlers.
func BotMetrics(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "200"
		if err != nil {
			status = "500"
		}
		metrics.RecordHTTPRequest("telegram:"+updateKind(c), "UPDATE", status, time.Since(start))

		return err
	}
}

func updateKind(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}
	if c.Callback() != nil {
		return "callback"
	}
	if msg := c.Message(); msg != nil && msg.Text != "" && msg.Text[0] == '/' {
		return "command"
	}
	return "text"
}
