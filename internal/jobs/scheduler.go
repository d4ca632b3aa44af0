package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/interview-coach/pkg/config"
)

const (
	DefaultCleanupCron   = "*/15 * * * *"
	DefaultRetentionCron = "0 3 * * *"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	cfg            config.JobsConfig
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, cfg config.JobsConfig, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CleanupCron == "" {
		cfg.CleanupCron = DefaultCleanupCron
	}
	if cfg.RetentionCron == "" {
		cfg.RetentionCron = DefaultRetentionCron
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		cfg:            cfg,
		log:            log,
	}
}

// RegisterTasks schedules the sweeps on the cleanup cron and, when a log
// retention is configured, the conversation purge on the retention cron.
func (s *scheduler) RegisterTasks() error {
	for _, taskType := range []string{TaskTypeSessionCleanup, TaskTypeIdempotencySweep, TaskTypeRateLimitSweep} {
		if _, err := s.asynqScheduler.Register(s.cfg.CleanupCron, NewSweepTask(taskType)); err != nil {
			return fmt.Errorf("register %s: %w", taskType, err)
		}
	}

	if s.cfg.LogRetention > 0 {
		task, err := NewRetentionTask(s.cfg.LogRetention)
		if err != nil {
			return err
		}
		if _, err := s.asynqScheduler.Register(s.cfg.RetentionCron, task); err != nil {
			return fmt.Errorf("register %s: %w", TaskTypeConversationRetention, err)
		}
	}

	s.log.InfoContext(context.Background(), "scheduler: registered maintenance tasks",
		slog.String("cleanup_cron", s.cfg.CleanupCron),
		slog.Duration("log_retention", s.cfg.LogRetention),
	)

	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Start(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
