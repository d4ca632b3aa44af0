package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/pkg/config"
)

func TestMaskingHandler_MasksSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.With(slog.String("api_key", "sk-123")).Info("call",
		slog.String("Token", "abc"),
		slog.Group("db", slog.String("password", "pw"), slog.String("host", "db1")),
		slog.String("user_id", "42"),
	)

	out := buf.String()
	assert.NotContains(t, out, "sk-123")
	assert.NotContains(t, out, "abc")
	assert.NotContains(t, out, "pw ")
	assert.Contains(t, out, "db.host=db1")
	assert.Contains(t, out, "user_id=42")
}

func TestMaskingHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithCorrelationID(context.Background(), "req-1")
	log.InfoContext(ctx, "handled")

	assert.Contains(t, buf.String(), "correlation_id=req-1")
}

func TestMiddleware_PropagatesCorrelationID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "from-client")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "from-client", seen)
	assert.Equal(t, "from-client", rec.Header().Get(CorrelationHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "from-client", seen)
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, closer := New(config.LoggerConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1}, false)
	log.Debug("hello", slog.String("secret", "s"))
	require.NoError(t, closer.Close())

	assert.FileExists(t, path)
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("unknown"))
}
