package interview

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/interview-coach/internal/domain"
	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/state"
	"github.com/Proton-105/interview-coach/pkg/metrics"
)

// resetCommands are whole messages that reset the interview before any
// state machine processing.
var resetCommands = append(append(state.Keywords{}, state.RestartKeywords...), "restart", "reset")

// IsResetCommand reports whether message asks for a full reset.
func IsResetCommand(message string) bool {
	return resetCommands.Equals(message)
}

// Reply is the outcome of HandleMessage or Reset.
type Reply struct {
	Response      string
	State         state.State
	SessionID     int64
	ResetComplete bool
}

// Service exposes the interview operations. All mutations for one user run
// under that user's lock.
type Service struct {
	fsm        state.StateMachine
	locker     state.Locker
	processor  *Processor
	resetter   *ResetCoordinator
	convlog    ConversationLog
	summarizer Summarizer
	texts      i18n.Translator
	log        *slog.Logger
	now        func() time.Time
}

func NewService(fsm state.StateMachine, locker state.Locker, c Collaborators, texts i18n.Translator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		fsm:        fsm,
		locker:     locker,
		processor:  NewProcessor(fsm, c, texts, log),
		resetter:   NewResetCoordinator(fsm, c.Collector, c.Log, texts, log),
		convlog:    c.Log,
		summarizer: c.Summarizer,
		texts:      texts,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage runs one message through reset interception, the
// transition engine and the state's handler, then appends it to the
// conversation log.
func (s *Service) HandleMessage(ctx context.Context, userID, message string) (*Reply, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}

	if IsResetCommand(message) {
		return s.Reset(ctx, userID)
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()

	if _, err := s.fsm.Transition(ctx, userID, message); err != nil {
		return nil, s.storageFailure("transition", "", start, err)
	}

	current, err := s.fsm.Current(ctx, userID)
	if err != nil {
		return nil, s.storageFailure("load state", "", start, err)
	}

	response, err := s.processor.Process(ctx, message, current, userID)
	if err != nil {
		return nil, s.storageFailure("process message", current, start, err)
	}

	// The handler may have advanced the state on its own.
	final, err := s.fsm.Current(ctx, userID)
	if err != nil {
		return nil, s.storageFailure("load state", current, start, err)
	}

	sessionID, err := s.convlog.Append(ctx, userID, domain.ConversationRecord{
		UserMessage: message,
		AIResponse:  response,
		State:       string(final),
		Timestamp:   s.now(),
	})
	if err != nil {
		return nil, s.storageFailure("append conversation record", current, start, err)
	}

	metrics.RecordMessage(string(current), "ok", time.Since(start))

	return &Reply{
		Response:  response,
		State:     final,
		SessionID: sessionID,
	}, nil
}

// Reset clears the user's session, collected intro and conversation log.
func (s *Service) Reset(ctx context.Context, userID string) (*Reply, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.resetter.Reset(ctx, userID)
}

// Session returns the user's current session without modifying it.
func (s *Service) Session(ctx context.Context, userID string) (*state.Session, error) {
	session, err := s.fsm.Session(ctx, userID)
	if err != nil {
		return nil, apperrors.NewStorageError("load session", err)
	}
	return session, nil
}

// History returns the user's conversation records, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]domain.ConversationRecord, error) {
	records, err := s.convlog.Records(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, apperrors.NewStorageError("load conversation records", err)
	}
	return records, nil
}

// Summary writes a closing summary from the user's conversation log.
func (s *Service) Summary(ctx context.Context, userID string) (string, error) {
	records, err := s.convlog.Records(ctx, strings.TrimSpace(userID))
	if err != nil {
		return "", apperrors.NewStorageError("load conversation records", err)
	}
	if len(records) == 0 {
		return s.texts.T("interview.summary.empty"), nil
	}
	if s.summarizer == nil {
		return s.texts.T("interview.completed.summary"), nil
	}

	result, err := s.summarizer.Summarize(ctx, records)
	if err != nil {
		metrics.RecordCollaboratorCall("summarizer", "error")
		s.log.Error("summary generation failed", slog.String("user_id", userID), slog.Any("error", err))
		return s.texts.Tf("interview.summary.failed", err), nil
	}
	metrics.RecordCollaboratorCall("summarizer", "ok")
	if result == nil || result.Result == "" {
		return s.texts.T("interview.completed.summary"), nil
	}
	return result.Result, nil
}

func (s *Service) lock(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err == nil {
		return unlock, nil
	}
	if errors.Is(err, state.ErrStateLocked) {
		return nil, apperrors.NewBusyError(err)
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return nil, apperrors.NewStorageError("acquire user lock", err)
}

func (s *Service) storageFailure(op string, current state.State, start time.Time, err error) error {
	metrics.RecordMessage(string(current), "error", time.Since(start))
	return apperrors.NewStorageError(op, err)
}
