// Package bot is the Telegram front end of the interview coach.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/bot/handlers"
	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/idempotency"
	"github.com/Proton-105/interview-coach/internal/middleware"
	"github.com/Proton-105/interview-coach/internal/ratelimit"
	"github.com/Proton-105/interview-coach/pkg/config"
)

const defaultPollTimeout = 10 * time.Second

// Deps are the application services the bot drives.
type Deps struct {
	Interviewer    handlers.Interviewer
	Texts          i18n.Translator
	Errors         *apperrors.Handler
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	RateLimit      *ratelimit.Guard
	Log            *slog.Logger
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	log     *slog.Logger
}

// New builds a long-polling telegram bot. Update contexts derive from ctx.
func New(ctx context.Context, cfg config.TelegramConfig, deps Deps) (*Bot, error) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	log := deps.Log.With(slog.String("component", "telegram"))
	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: timeout},
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot: tb,
		router:  NewRouter(log),
		log:     log,
	}
	b.setupRouter(ctx, deps)

	tb.Handle(telebot.OnText, b.router.Route)
	tb.Handle(telebot.OnCallback, b.router.Route)

	return b, nil
}

// setupRouter installs the middleware chain and the handlers. Recovery is
// outermost; idempotency sits inside error handling so failed updates are
// not remembered.
func (b *Bot) setupRouter(ctx context.Context, deps Deps) {
	texts := deps.Texts

	b.router.Use(RecoveryMiddleware(b.log, deps.Errors, texts))
	b.router.Use(middleware.UpdateContext(ctx))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.BotMetrics)
	b.router.Use(ErrorHandlingMiddleware(deps.Errors, texts))
	b.router.Use(middleware.RateLimit(deps.RateLimit, texts, b.log))
	b.router.Use(middleware.Idempotency(deps.Idempotency, deps.IdempotencyTTL, b.log))

	svc := deps.Interviewer
	reset := handlers.NewResetHandler(texts, b.log)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(svc, texts, b.log))
	b.router.RegisterCommand(CommandReset, reset)
	b.router.RegisterCommand(CommandCancel, reset)
	b.router.RegisterCommand(CommandSummary, handlers.NewSummaryHandler(svc))
	b.router.RegisterCommand(CommandHistory, handlers.NewHistoryHandler(svc, texts))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(texts))

	b.router.RegisterCallback(CallbackReset, handlers.NewResetCallbackHandler(svc, texts, b.log))
	b.router.RegisterCallback(CallbackHistory, handlers.NewHistoryPageHandler(svc, texts))

	b.router.SetDefault(handlers.NewMessageHandler(svc, texts, b.log))
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.telebot.SetCommands(b.commandMenu()); err != nil {
		b.log.Warn("failed to publish command menu", slog.Any("error", err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.telebot.Start()
	}()

	b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))

	<-ctx.Done()
	b.Stop()
	<-done
	return nil
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) commandMenu() []telebot.Command {
	return []telebot.Command{
		{Text: CommandStart[1:], Description: "開始或繼續面試"},
		{Text: CommandReset[1:], Description: "重置面試"},
		{Text: CommandSummary[1:], Description: "產生面試總結"},
		{Text: CommandHistory[1:], Description: "查看對話紀錄"},
		{Text: CommandHelp[1:], Description: "指令說明"},
	}
}
