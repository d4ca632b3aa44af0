package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeSessionCleanup        = "session:cleanup"
	TaskTypeConversationRetention = "conversation:retention"
	TaskTypeIdempotencySweep      = "idempotency:sweep"
	TaskTypeRateLimitSweep        = "ratelimit:sweep"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Queues is the priority map the worker consumes.
var Queues = map[string]int{
	QueueDefault: 6,
	QueueLow:     3,
}

// RetentionPayload carries how old conversation records must be to be purged.
type RetentionPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewSweepTask builds one of the payload-less sweep tasks.
func NewSweepTask(taskType string) *asynq.Task {
	return asynq.NewTask(taskType, nil, asynq.Queue(QueueLow), asynq.MaxRetry(3), asynq.Unique(time.Minute))
}

func NewRetentionTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(RetentionPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeConversationRetention, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
