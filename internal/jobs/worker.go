package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 2

// Worker provides APIs to register handlers and control the background worker lifecycle.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run(ctx context.Context) error
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker constructs a Worker backed by an asynq.Server instance.
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:         Queues,
		Concurrency:    concurrency,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		Logger:         asynqLogger{log: log.With(slog.String("component", "asynq"))},
	})

	return &worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
}

// RegisterHandler wires a task type to the provided handler.
func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run processes tasks until ctx is done, then waits for in-flight tasks
// within asynq's shutdown timeout.
func (w *worker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "jobs worker: starting processing loop")
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start jobs worker: %w", err)
	}

	<-ctx.Done()
	w.log.InfoContext(context.WithoutCancel(ctx), "jobs worker: shutting down")
	w.server.Shutdown()
	return nil
}

// asynqLogger routes asynq's internal logging into slog.
type asynqLogger struct{ log *slog.Logger }

func (l asynqLogger) Debug(args ...any) {
	l.log.Debug(fmtArgs(args))
}

func (l asynqLogger) Info(args ...any) {
	l.log.Info(fmtArgs(args))
}

func (l asynqLogger) Warn(args ...any) {
	l.log.Warn(fmtArgs(args))
}

func (l asynqLogger) Error(args ...any) {
	l.log.Error(fmtArgs(args))
}

func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(fmtArgs(args), slog.Bool("fatal", true))
}

func fmtArgs(args []any) string { return fmt.Sprint(args...) }
