package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/interview-coach/pkg/logger"
)

const defaultUserMessage = "發生錯誤，請稍後再試。"

// Handler logs errors, reports severe ones to Sentry and picks the text
// shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle returns the user-facing message and whether retrying may help.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]any, 0, 6)
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		attrs = append(attrs,
			slog.String("code", appErr.Code),
			slog.String("severity", string(appErr.Severity)),
			slog.Bool("retryable", appErr.Retryable),
			slog.Any("error", err),
		)
		h.logAt(ctx, appErr.Severity, attrs)

		if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
			h.sendToSentry(err)
		}

		if appErr.UserMessage == "" {
			return defaultUserMessage, appErr.Retryable
		}
		return appErr.UserMessage, appErr.Retryable
	}

	attrs = append(attrs, slog.String("severity", string(SeverityHigh)), slog.Any("error", err))
	h.log.ErrorContext(ctx, "unknown error", attrs...)

	if h.sentryEnabled {
		h.sendToSentry(err)
	}

	return defaultUserMessage, false
}

func (h *Handler) logAt(ctx context.Context, severity Severity, attrs []any) {
	switch severity {
	case SeverityLow:
		h.log.WarnContext(ctx, "application error", attrs...)
	default:
		h.log.ErrorContext(ctx, "application error", attrs...)
	}
}

func (h *Handler) sendToSentry(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}
			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		sentry.CaptureException(err)
	})
}
