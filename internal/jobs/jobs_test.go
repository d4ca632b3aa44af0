package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRetentionTask(t *testing.T) {
	task, err := NewRetentionTask(72 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeConversationRetention, task.Type())

	var payload RetentionPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 72*time.Hour, payload.OlderThan)
}

func TestScheduler_RegisterTasks(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	s := NewScheduler(opt, config.JobsConfig{LogRetention: 24 * time.Hour}, testLogger())
	require.NoError(t, s.RegisterTasks())

	bad := NewScheduler(opt, config.JobsConfig{CleanupCron: "not a cron"}, testLogger())
	assert.Error(t, bad.RegisterTasks())
}

func TestManager_EnqueueStartupSweeps(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	m := NewManager(opt, testLogger())
	t.Cleanup(func() { _ = m.Close() })

	ctx := context.Background()
	require.NoError(t, EnqueueStartupSweeps(ctx, m))
	// Unique tasks enqueued twice within the window are not an error.
	require.NoError(t, EnqueueStartupSweeps(ctx, m))

	pending, err := mr.List("asynq:{" + QueueLow + "}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}
