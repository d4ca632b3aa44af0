package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("append record: %w", NewStorageError("append", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeStorage, CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "", CodeOf(cause))
}

func TestHandler_Handle(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		wantMessage   string
		wantRetryable bool
		wantLog       string
	}{
		{
			name:          "app error",
			err:           NewResetError(errors.New("db down")),
			wantMessage:   "重置失敗，請再試一次。",
			wantRetryable: true,
			wantLog:       "level=ERROR",
		},
		{
			name:        "low severity logs warn",
			err:         NewValidationError("user_id required"),
			wantMessage: "資料格式錯誤：user_id required",
			wantLog:     "level=WARN",
		},
		{
			name:        "unknown error",
			err:         errors.New("boom"),
			wantMessage: defaultUserMessage,
			wantLog:     "unknown error",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHandler(slog.New(slog.NewTextHandler(&buf, nil)), false)

			msg, retryable := h.Handle(context.Background(), tc.err)
			assert.Equal(t, tc.wantMessage, msg)
			assert.Equal(t, tc.wantRetryable, retryable)
			assert.Contains(t, buf.String(), tc.wantLog)
		})
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(BreakerSettings{MinRequests: 4, OpenTimeout: time.Minute, HalfOpenMaxRequests: 2})
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.OnStateChange(func(from, to BreakerState) { transitions = append(transitions, from.String()+">"+to.String()) })

	failing := func() error { return errors.New("fail") }
	for i := 0; i < 4; i++ {
		_ = cb.Call(failing)
	}
	require.Equal(t, BreakerOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, BreakerHalfOpen, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, BreakerClosed, cb.State())

	assert.Equal(t, []string{"closed>open", "open>half_open", "half_open>closed"}, transitions)
}

func TestWithRetry(t *testing.T) {
	t.Run("retries retryable errors", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			if attempts < 2 {
				return NewCollaboratorError("llm", errors.New("timeout"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			return NewValidationError("bad")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("open circuit is not retried", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			return NewCollaboratorError("llm", ErrCircuitOpen)
		})
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 1, attempts)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
