// Package api exposes the interview over HTTP with the JSON envelope
// {success, message, status_code, data}.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/Proton-105/interview-coach/internal/domain"
	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/idempotency"
	"github.com/Proton-105/interview-coach/internal/interview"
	"github.com/Proton-105/interview-coach/internal/ratelimit"
	"github.com/Proton-105/interview-coach/internal/state"
)

const (
	// DefaultUserID addresses requests that carry no user id.
	DefaultUserID = "default_user"

	// IdempotencyHeader lets clients make POST and DELETE safe to retry.
	IdempotencyHeader = "Idempotency-Key"

	maxBodyBytes = 64 << 10
)

// Interviewer is the interview service as seen by the API.
type Interviewer interface {
	HandleMessage(ctx context.Context, userID, message string) (*interview.Reply, error)
	Reset(ctx context.Context, userID string) (*interview.Reply, error)
	Session(ctx context.Context, userID string) (*state.Session, error)
	Summary(ctx context.Context, userID string) (string, error)
	History(ctx context.Context, userID string) ([]domain.ConversationRecord, error)
}

// Options carries the optional collaborators of the Handler.
type Options struct {
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	RateLimit      *ratelimit.Guard
	Errors         *apperrors.Handler
}

// Handler serves the interview endpoints.
type Handler struct {
	svc      Interviewer
	opts     Options
	texts    i18n.Translator
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(svc Interviewer, opts Options, texts i18n.Translator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if opts.Errors == nil {
		opts.Errors = apperrors.NewHandler(log, false)
	}

	return &Handler{
		svc:      svc,
		opts:     opts,
		texts:    texts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With(slog.String("component", "api")),
	}
}

type messageRequest struct {
	UserID  string `json:"user_id" validate:"omitempty,max=64"`
	Message string `json:"message" validate:"max=4000"`
}

type resetRequest struct {
	UserID string `json:"user_id" validate:"omitempty,max=64"`
}

type replyData struct {
	Response      string `json:"response"`
	SessionID     *int64 `json:"session_id"`
	CurrentState  string `json:"current_state"`
	ResetComplete bool   `json:"reset_complete,omitempty"`
}

func toReplyData(reply *interview.Reply) replyData {
	data := replyData{
		Response:      reply.Response,
		CurrentState:  string(reply.State),
		ResetComplete: reply.ResetComplete,
	}
	if !reply.ResetComplete {
		id := reply.SessionID
		data.SessionID = &id
	}
	return data
}

// PostMessage handles POST /api/interview.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	userID := userIDOrDefault(req.UserID)

	if !h.allow(w, r, userID) {
		return
	}

	h.idempotent(w, r, userID, func(ctx context.Context) (any, error) {
		reply, err := h.svc.HandleMessage(ctx, userID, req.Message)
		if err != nil {
			return nil, err
		}
		return toReplyData(reply), nil
	}, "api.handle_failed")
}

// DeleteInterview handles DELETE /api/interview. The body is optional.
func (h *Handler) DeleteInterview(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	userID := userIDOrDefault(req.UserID)

	h.idempotent(w, r, userID, func(ctx context.Context) (any, error) {
		reply, err := h.svc.Reset(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toReplyData(reply), nil
	}, "api.reset_failed")
}

type questionView struct {
	Question   string `json:"question"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type stateData struct {
	UserID          string        `json:"user_id"`
	CurrentState    string        `json:"current_state"`
	CurrentQuestion *questionView `json:"current_question,omitempty"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty"`
}

// GetState handles GET /api/interview/state. The reference answer of the
// open question is not disclosed.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	userID := userIDOrDefault(r.URL.Query().Get("user_id"))

	session, err := h.svc.Session(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	data := stateData{UserID: userID, CurrentState: string(session.State)}
	if q := session.CurrentQuestion; q != nil {
		data.CurrentQuestion = &questionView{Question: q.Question, Category: q.Category, Difficulty: q.Difficulty}
	}
	if !session.UpdatedAt.IsZero() {
		data.UpdatedAt = &session.UpdatedAt
	}

	h.success(w, data)
}

// GetSummary handles GET /api/interview/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDOrDefault(r.URL.Query().Get("user_id"))

	summary, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.success(w, map[string]string{"summary": summary})
}

type recordView struct {
	ID           int64     `json:"id"`
	UserMessage  string    `json:"user_message"`
	AIResponse   string    `json:"ai_response"`
	CurrentState string    `json:"current_state"`
	Timestamp    time.Time `json:"timestamp"`
}

// GetHistory handles GET /api/interview/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := userIDOrDefault(r.URL.Query().Get("user_id"))

	records, err := h.svc.History(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			ID:           rec.ID,
			UserMessage:  rec.UserMessage,
			AIResponse:   rec.AIResponse,
			CurrentState: rec.State,
			Timestamp:    rec.Timestamp,
		})
	}

	h.success(w, map[string]any{"records": views})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && optional {
		err = nil
	}
	if err != nil {
		h.fail(w, r, apperrors.NewValidationError("invalid JSON body"), "")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		h.fail(w, r, apperrors.NewValidationError(validationMessage(err)), "")
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return strings.Join(fields, "; ")
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, userID string) bool {
	if h.opts.RateLimit == nil {
		return true
	}

	result, err := h.opts.RateLimit.Allow(r.Context(), userID)
	switch {
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		retryAfter := result.RetryAfter(time.Now())
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.fail(w, r, apperrors.NewRateLimitError(retryAfter), "")
		return false
	case err != nil:
		h.log.WarnContext(r.Context(), "rate limiter error", slog.String("user_id", userID), slog.Any("error", err))
	}
	return true
}

// idempotent runs op once per Idempotency-Key, replaying the stored reply
// for repeated keys. Requests without the header run op directly.
func (h *Handler) idempotent(w http.ResponseWriter, r *http.Request, userID string, op idempotency.Operation, failureKey string) {
	ctx := r.Context()

	clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if clientKey == "" || h.opts.Idempotency == nil {
		data, err := op(ctx)
		if err != nil {
			h.fail(w, r, err, failureKey)
			return
		}
		h.success(w, data)
		return
	}

	key := idempotency.GenerateKey("http", r.Method, userID, clientKey)
	result, err := h.opts.Idempotency.Execute(ctx, key, h.opts.IdempotencyTTL, op)
	if err != nil {
		h.fail(w, r, err, failureKey)
		return
	}

	if result.FromCache {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	h.success(w, result.Response)
}

// fail maps err onto a status code and writes the error envelope.
// failureKey, when set, prefixes the message with the operation that failed.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, failureKey string) {
	if errors.Is(err, idempotency.ErrRequestInProgress) {
		err = apperrors.NewBusyError(err)
	}
	userMsg, _ := h.opts.Errors.Handle(r.Context(), err)

	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeValidation:
		status = http.StatusBadRequest
	case apperrors.CodeRateLimit:
		status = http.StatusTooManyRequests
	case apperrors.CodeBusy:
		status = http.StatusConflict
	case apperrors.CodeCollaborator:
		status = http.StatusBadGateway
	}

	message := userMsg
	if failureKey != "" && status == http.StatusInternalServerError {
		message = h.texts.Tf(failureKey, userMsg)
	}

	h.failure(w, status, code, message)
}

func userIDOrDefault(userID string) string {
	if userID = strings.TrimSpace(userID); userID == "" {
		return DefaultUserID
	}
	return userID
}
