package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Proton-105/interview-coach/internal/api"
	"github.com/Proton-105/interview-coach/internal/bot"
	"github.com/Proton-105/interview-coach/internal/database"
	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/internal/health"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/idempotency"
	"github.com/Proton-105/interview-coach/internal/interview"
	"github.com/Proton-105/interview-coach/internal/intro"
	"github.com/Proton-105/interview-coach/internal/jobs"
	jobhandlers "github.com/Proton-105/interview-coach/internal/jobs/handlers"
	"github.com/Proton-105/interview-coach/internal/lifecycle"
	"github.com/Proton-105/interview-coach/internal/llm"
	"github.com/Proton-105/interview-coach/internal/questionbank"
	"github.com/Proton-105/interview-coach/internal/ratelimit"
	"github.com/Proton-105/interview-coach/internal/repository"
	"github.com/Proton-105/interview-coach/internal/state"
	"github.com/Proton-105/interview-coach/pkg/config"
	"github.com/Proton-105/interview-coach/pkg/graceful"
	"github.com/Proton-105/interview-coach/pkg/logger"
	"github.com/Proton-105/interview-coach/pkg/metrics"
	pkgredis "github.com/Proton-105/interview-coach/pkg/redis"
)

const (
	sessionSweepInterval = 15 * time.Minute
	gaugeRefreshInterval = 30 * time.Second
	sentryFlushTimeout   = 2 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the maintenance jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// app holds every long-lived component of a serve process.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	shutdown *lifecycle.Shutdown

	redis    *goredis.Client
	fsm      state.StateMachine
	storage  state.Storage
	sessions *state.Cleaner
	bank     *questionbank.Bank
	convlog  *repository.ConversationRepository
	service  *interview.Service
	texts    i18n.Translator
	errors   *apperrors.Handler
	guard    *ratelimit.Guard
	memLimit *ratelimit.MemoryLimiter
	idem     idempotency.Manager
	checker  *health.Checker
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	log, logCloser := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	log.Info("starting interview coach", slog.String("env", cfg.AppEnv), slog.String("addr", cfg.Server.Addr))

	a := &app{cfg: cfg, log: log, shutdown: lifecycle.NewShutdown(log)}
	a.shutdown.Closer("logger", logCloser.Close)
	if cfg.Sentry.Enabled {
		a.shutdown.Register("sentry", func(context.Context) error {
			sentry.Flush(sentryFlushTimeout)
			return nil
		})
	}

	runErr := a.run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := a.shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	return runErr
}

func (a *app) run(ctx context.Context) error {
	if err := a.setup(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	router := api.NewRouter(
		api.NewHandler(a.service, api.Options{
			Idempotency:    a.idem,
			IdempotencyTTL: a.cfg.Idempotency.TTL,
			RateLimit:      a.guard,
			Errors:         a.errors,
		}, a.texts, a.log),
		lifecycle.NewProbes(a.checker, a.log),
		a.log,
	)
	srv := graceful.NewServer(a.log, &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}, a.cfg.Server.ShutdownTimeout)
	g.Go(func() error { return srv.ListenAndServe(gctx) })

	if a.cfg.Telegram.Enabled {
		b, err := bot.New(gctx, a.cfg.Telegram, bot.Deps{
			Interviewer:    a.service,
			Texts:          a.texts,
			Errors:         a.errors,
			Idempotency:    a.idem,
			IdempotencyTTL: a.cfg.Idempotency.TTL,
			RateLimit:      a.guard,
			Log:            a.log,
		})
		if err != nil {
			return err
		}
		a.checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
		g.Go(func() error { return b.Run(gctx) })
	}

	if a.cfg.Questions.Watch {
		g.Go(func() error { return a.bank.Watch(gctx) })
	}

	collector := metrics.NewStateCollector(a.fsm, a.log, gaugeRefreshInterval)
	g.Go(func() error {
		collector.Run(gctx)
		return nil
	})

	if err := a.startJobs(gctx, g); err != nil {
		return err
	}

	return g.Wait()
}

// setup builds the stores, collaborators and the interview service.
func (a *app) setup(ctx context.Context) error {
	cfg := a.cfg

	manager, err := i18n.Load(cfg.Interview.Language)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	a.texts = manager.Translator(cfg.Interview.Language)
	a.errors = apperrors.NewHandler(a.log, cfg.Sentry.Enabled)
	a.checker = health.NewChecker(a.log)

	if cfg.Redis.Enabled {
		a.redis, err = pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.shutdown.Closer("redis", a.redis.Close)
		a.checker.AddCheck("redis", health.NewRedisChecker(a.redis))
	}

	db, dialect, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.shutdown.Closer("database", db.Close)
	a.checker.AddCheck("database", health.NewDBChecker(db))

	if _, err := database.NewMigrator(db, dialect, a.log).Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	a.convlog = repository.NewConversationRepository(db, dialect, a.log)

	var (
		locker    state.Locker
		collector interview.IntroCollector
	)
	switch cfg.Interview.StateBackend {
	case "redis":
		if a.redis == nil {
			return errors.New("interview.state_backend=redis requires redis.enabled")
		}
		a.storage = state.NewRedisStorage(a.redis, a.log, cfg.Interview.SessionTTL)
		locker = state.NewRedisLocker(a.redis, a.log, cfg.Interview.LockTTL, cfg.Interview.LockWait)
		collector = intro.NewRedisCollector(a.redis, a.log, cfg.Interview.SessionTTL)
	default:
		a.storage = state.NewMemoryStorage()
		locker = state.NewLocalLocker()
		collector = intro.NewMemoryCollector()
	}
	a.fsm = state.NewStateMachine(a.storage, a.log)
	a.sessions = state.NewCleaner(a.storage, locker, a.log, cfg.Interview.SessionTTL, collector.Clear)

	a.bank, err = questionbank.Load(cfg.Questions.Path, a.log)
	if err != nil {
		return err
	}

	collab := interview.Collaborators{
		Collector:    collector,
		QuestionBank: a.bank,
		Log:          a.convlog,
	}
	if cfg.OpenAI.Enabled {
		analyzer := llm.NewAnalyzer(llm.NewClient(cfg.OpenAI, a.log), a.texts, a.log)
		collab.IntroAnalyzer, collab.AnswerAnalyzer, collab.Summarizer = analyzer, analyzer, analyzer
	} else {
		disabled := llm.NewDisabled(a.texts)
		collab.IntroAnalyzer, collab.AnswerAnalyzer, collab.Summarizer = disabled, disabled, disabled
	}
	a.service = interview.NewService(a.fsm, locker, collab, a.texts, a.log)

	rules := ratelimit.NewRules(cfg.RateLimit)
	if rules.Enabled() {
		a.memLimit = ratelimit.NewMemoryLimiter(a.log)
		var limiter ratelimit.Limiter = a.memLimit
		if a.redis != nil {
			limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(a.redis, a.log), a.memLimit, a.log)
		}
		a.guard = ratelimit.NewGuard(limiter, rules)
	}

	if a.redis != nil {
		a.idem = idempotency.NewManager(idempotency.NewRedisStore(a.redis, a.log), a.log)
	}

	return nil
}

// startJobs runs the asynq worker and scheduler when jobs are enabled and
// Redis is available; otherwise sessions are swept in process.
func (a *app) startJobs(ctx context.Context, g *errgroup.Group) error {
	if !a.cfg.Jobs.Enabled || a.redis == nil {
		if a.cfg.Jobs.Enabled {
			a.log.Warn("jobs need redis, sweeping sessions in process instead")
		}
		g.Go(func() error {
			a.sessions.Run(ctx, sessionSweepInterval)
			return nil
		})
		return nil
	}

	opts := a.redis.Options()
	redisOpt := asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}

	worker := jobs.NewWorker(redisOpt, a.cfg.Jobs.Concurrency, a.log)
	sweepers := map[string]jobhandlers.Sweeper{
		jobs.TaskTypeSessionCleanup:   a.sessions,
		jobs.TaskTypeIdempotencySweep: idempotency.NewCleaner(a.redis, a.log),
		jobs.TaskTypeRateLimitSweep:   ratelimit.NewCleaner(a.redis, a.memLimit, a.cfg.RateLimit.Window, a.log),
	}
	jobhandlers.Register(worker, sweepers, a.convlog, a.log)

	scheduler := jobs.NewScheduler(redisOpt, a.cfg.Jobs, a.log)
	if err := scheduler.RegisterTasks(); err != nil {
		return err
	}

	queue := jobs.NewManager(redisOpt, a.log)
	a.shutdown.Closer("jobs client", queue.Close)
	if err := jobs.EnqueueStartupSweeps(ctx, queue); err != nil {
		a.log.Warn("failed to enqueue startup sweeps", slog.Any("error", err))
	}

	g.Go(func() error { return worker.Run(ctx) })
	scheduler.Run()
	a.shutdown.Register("jobs scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	return nil
}
