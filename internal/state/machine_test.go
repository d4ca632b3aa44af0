package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/internal/domain"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetSession(ctx context.Context, userID string) (*Session, error) {
	args := m.Called(ctx, userID)
	session, _ := args.Get(0).(*Session)
	return session, args.Error(1)
}

func (m *mockStorage) SaveSession(ctx context.Context, session *Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockStorage) DeleteSession(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) ListSessions(ctx context.Context) ([]*Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]*Session)
	return sessions, args.Error(1)
}

func TestStateMachine_Transition(t *testing.T) {
	ctx := context.Background()
	userID := "42"

	testCases := []struct {
		name        string
		message     string
		setupMocks  func(ms *mockStorage)
		expectFired bool
		expectErr   error
	}{
		{
			name:    "fires and saves",
			message: "開始面試",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, State: StateWaiting}, nil).Once()
				ms.On("SaveSession", mock.Anything, mock.MatchedBy(func(s *Session) bool {
					return s.State == StateIntro && !s.UpdatedAt.IsZero()
				})).Return(nil).Once()
			},
			expectFired: true,
		},
		{
			name:    "unseen user starts from waiting",
			message: "開始",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), ErrSessionNotFound).Once()
				ms.On("SaveSession", mock.Anything, mock.MatchedBy(func(s *Session) bool {
					return s.UserID == userID && s.State == StateIntro
				})).Return(nil).Once()
			},
			expectFired: true,
		},
		{
			name:    "no match writes nothing",
			message: "hello",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, State: StateQuestioning}, nil).Once()
			},
			expectFired: false,
		},
		{
			name:    "save failure",
			message: "退出",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, State: StateQuestioning}, nil).Once()
				ms.On("SaveSession", mock.Anything, mock.Anything).Return(errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
		{
			name:    "load failure",
			message: "退出",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, testLogger())
			fired, err := fsm.Transition(ctx, userID, tc.message)

			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("expected error %v, got %v", tc.expectErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			assert.Equal(t, tc.expectFired, fired)

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_UnseenUserIsWaiting(t *testing.T) {
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	current, err := fsm.Current(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, current)

	sessions, err := fsm.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions, "reads must not create sessions")
}

func TestStateMachine_ForceState(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	var recorded []string
	RegisterTransitionRecorder(func(from, to string) { recorded = append(recorded, from+">"+to) })
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	require.NoError(t, fsm.ForceState(ctx, "u1", StateQuestioning))
	require.NoError(t, fsm.ForceState(ctx, "u1", StateQuestioning))

	current, err := fsm.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateQuestioning, current)
	assert.Equal(t, []string{"waiting>questioning"}, recorded)

	err = fsm.ForceState(ctx, "u1", State("bogus"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateMachine_CurrentQuestionOverwriteAndClear(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	require.NoError(t, fsm.ForceState(ctx, "u2", StateQuestioning))
	require.NoError(t, fsm.SetCurrentQuestion(ctx, "u2", domain.Question{Question: "first"}))
	require.NoError(t, fsm.SetCurrentQuestion(ctx, "u2", domain.Question{Question: "second", StandardAnswer: "a"}))

	session, err := fsm.Session(ctx, "u2")
	require.NoError(t, err)
	require.NotNil(t, session.CurrentQuestion)
	assert.Equal(t, "second", session.CurrentQuestion.Question)
	assert.Equal(t, StateQuestioning, session.State)

	require.NoError(t, fsm.Clear(ctx, "u2"))
	require.NoError(t, fsm.Clear(ctx, "u2"))

	session, err = fsm.Session(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, session.CurrentQuestion)
	assert.Equal(t, StateWaiting, session.State)
}

func TestStateMachine_ClearError(t *testing.T) {
	ms := &mockStorage{}
	ms.On("DeleteSession", mock.Anything, "7").Return(errStorageFailure).Once()

	err := NewStateMachine(ms, testLogger()).Clear(context.Background(), "7")
	assert.ErrorIs(t, err, errStorageFailure)
	ms.AssertExpectations(t)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
