package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager describes the minimal queue operations needed by the application.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	m.log.DebugContext(ctx, "task enqueued", slog.String("task", task.Type()), slog.String("id", info.ID), slog.String("queue", info.Queue))
	return info, nil
}

func (m *manager) Close() error {
	return m.client.Close()
}

// EnqueueStartupSweeps queues one sweep of every kind so a restarted
// process does not wait for the first cron tick.
func EnqueueStartupSweeps(ctx context.Context, m Manager) error {
	for _, taskType := range []string{TaskTypeSessionCleanup, TaskTypeIdempotencySweep, TaskTypeRateLimitSweep} {
		if _, err := m.Enqueue(ctx, NewSweepTask(taskType)); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			return err
		}
	}
	return nil
}
