package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/interview-coach/internal/domain"
)

var (
	// ErrSessionNotFound indicates that no session is stored for the user.
	ErrSessionNotFound = errors.New("interview session not found")
	// ErrStateLocked indicates that another request for the same user still holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
	// ErrInvalidState indicates an attempt to store an unknown state.
	ErrInvalidState = errors.New("invalid interview state")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe fired transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine is the state store plus the transition engine. It does not
// lock: callers serialize per user with a Locker around every
// read-modify-write sequence.
type StateMachine interface {
	// Current returns the user's state, StateWaiting for unseen users.
	Current(ctx context.Context, userID string) (State, error)
	// Session returns the user's session, or a fresh waiting session.
	Session(ctx context.Context, userID string) (*Session, error)
	// Transition evaluates the transition table and stores the new state
	// when a transition fires.
	Transition(ctx context.Context, userID, message string) (bool, error)
	// ForceState stores a state without consulting the transition table.
	ForceState(ctx context.Context, userID string, next State) error
	// SetCurrentQuestion replaces the user's current question.
	SetCurrentQuestion(ctx context.Context, userID string, question domain.Question) error
	// Clear removes the session together with its current question.
	Clear(ctx context.Context, userID string) error
	// Sessions lists every stored session.
	Sessions(ctx context.Context) ([]*Session, error)
}

type machine struct {
	storage Storage
	log     *slog.Logger
	now     func() time.Time
}

// NewStateMachine creates a StateMachine over the given storage.
func NewStateMachine(storage Storage, log *slog.Logger) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *machine) Current(ctx context.Context, userID string) (State, error) {
	session, err := m.Session(ctx, userID)
	if err != nil {
		return "", err
	}
	return session.State, nil
}

func (m *machine) Session(ctx context.Context, userID string) (*Session, error) {
	session, err := m.storage.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return NewSession(userID), nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.State == "" {
		session.State = StateWaiting
	}
	return session, nil
}

func (m *machine) Transition(ctx context.Context, userID, message string) (bool, error) {
	session, err := m.Session(ctx, userID)
	if err != nil {
		return false, err
	}

	next, fired := NextState(session.State, message)
	if !fired {
		return false, nil
	}

	from := session.State
	session.State = next
	if err := m.save(ctx, session); err != nil {
		return false, err
	}

	m.log.Info("interview state changed",
		slog.String("user_id", userID),
		slog.String("from", string(from)),
		slog.String("to", string(next)),
	)
	transitionRecorder(string(from), string(next))

	return true, nil
}

func (m *machine) ForceState(ctx context.Context, userID string, next State) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, next)
	}

	session, err := m.Session(ctx, userID)
	if err != nil {
		return err
	}
	if session.State == next {
		return nil
	}

	from := session.State
	session.State = next
	if err := m.save(ctx, session); err != nil {
		return err
	}

	m.log.Info("interview state forced",
		slog.String("user_id", userID),
		slog.String("from", string(from)),
		slog.String("to", string(next)),
	)
	transitionRecorder(string(from), string(next))

	return nil
}

func (m *machine) SetCurrentQuestion(ctx context.Context, userID string, question domain.Question) error {
	session, err := m.Session(ctx, userID)
	if err != nil {
		return err
	}

	session.CurrentQuestion = &question
	return m.save(ctx, session)
}

func (m *machine) Clear(ctx context.Context, userID string) error {
	if err := m.storage.DeleteSession(ctx, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *machine) Sessions(ctx context.Context) ([]*Session, error) {
	return m.storage.ListSessions(ctx)
}

func (m *machine) save(ctx context.Context, session *Session) error {
	session.UpdatedAt = m.now()
	if err := m.storage.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
