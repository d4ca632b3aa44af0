package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/state"
	"github.com/Proton-105/interview-coach/pkg/metrics"
)

// ResetCoordinator clears everything kept for one user. Every step is
// attempted; if any of them fails the reset as a whole fails.
type ResetCoordinator struct {
	fsm       state.StateMachine
	collector IntroCollector
	convlog   ConversationLog
	texts     i18n.Translator
	log       *slog.Logger
}

func NewResetCoordinator(fsm state.StateMachine, collector IntroCollector, convlog ConversationLog, texts i18n.Translator, log *slog.Logger) *ResetCoordinator {
	if log == nil {
		log = slog.Default()
	}

	return &ResetCoordinator{
		fsm:       fsm,
		collector: collector,
		convlog:   convlog,
		texts:     texts,
		log:       log,
	}
}

// Reset must be called with the user's lock held. It is idempotent.
func (r *ResetCoordinator) Reset(ctx context.Context, userID string) (*Reply, error) {
	var errs []error

	if err := r.fsm.Clear(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}
	if err := r.collector.Clear(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("clear intro: %w", err))
	}
	if err := r.convlog.DeleteRecords(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("delete conversation records: %w", err))
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		metrics.RecordReset("failed")
		r.log.Error("interview reset failed", slog.String("user_id", userID), slog.Any("error", err))
		return nil, apperrors.NewResetError(err)
	}

	metrics.RecordReset("ok")
	r.log.Info("interview reset", slog.String("user_id", userID))

	return &Reply{
		Response:      r.texts.T("interview.reset.done"),
		State:         state.StateWaiting,
		ResetComplete: true,
	}, nil
}
