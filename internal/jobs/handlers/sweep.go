// Package handlers processes the maintenance tasks queued by the jobs scheduler.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/interview-coach/internal/jobs"
	"github.com/Proton-105/interview-coach/pkg/metrics"
)

// Sweeper removes expired entries and reports how many it removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepHandler runs a Sweeper for one task type.
type SweepHandler struct {
	task    string
	sweeper Sweeper
	log     *slog.Logger
}

func NewSweepHandler(task string, sweeper Sweeper, log *slog.Logger) *SweepHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SweepHandler{task: task, sweeper: sweeper, log: log}
}

func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	removed, err := h.sweeper.Sweep(ctx)
	if err != nil {
		metrics.RecordJob(h.task, "error", int64(removed))
		h.log.ErrorContext(ctx, "sweep failed", slog.String("task_type", t.Type()), slog.Int("removed", removed), slog.Any("error", err))
		return err
	}

	metrics.RecordJob(h.task, "ok", int64(removed))
	h.log.InfoContext(ctx, "sweep finished", slog.String("task_type", t.Type()), slog.Int("removed", removed))
	return nil
}

// Purger deletes conversation records created before cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionHandler enforces the conversation log retention.
type RetentionHandler struct {
	purger Purger
	log    *slog.Logger
	now    func() time.Time
}

func NewRetentionHandler(purger Purger, log *slog.Logger) *RetentionHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RetentionHandler{purger: purger, log: log, now: time.Now}
}

func (h *RetentionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.RetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "retention: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("decode retention payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OlderThan <= 0 {
		return fmt.Errorf("retention must be positive, got %s: %w", payload.OlderThan, asynq.SkipRetry)
	}

	cutoff := h.now().Add(-payload.OlderThan)
	removed, err := h.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		metrics.RecordJob(jobs.TaskTypeConversationRetention, "error", 0)
		h.log.ErrorContext(ctx, "retention purge failed", slog.Time("cutoff", cutoff), slog.Any("error", err))
		return err
	}

	metrics.RecordJob(jobs.TaskTypeConversationRetention, "ok", removed)
	h.log.InfoContext(ctx, "retention purge finished", slog.Time("cutoff", cutoff), slog.Int64("removed", removed))
	return nil
}

// Register wires every maintenance handler that has a backing component.
// Nil sweepers are skipped.
func Register(w jobs.Worker, sweepers map[string]Sweeper, purger Purger, log *slog.Logger) {
	for task, sweeper := range sweepers {
		if sweeper == nil {
			continue
		}
		w.RegisterHandler(task, NewSweepHandler(task, sweeper, log))
	}
	if purger != nil {
		w.RegisterHandler(jobs.TaskTypeConversationRetention, NewRetentionHandler(purger, log))
	}
}
