package interview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/internal/domain"
	"github.com/Proton-105/interview-coach/internal/intro"
	"github.com/Proton-105/interview-coach/internal/state"
)

const uid = "1001"

func currentState(t *testing.T, f *fixture) state.State {
	t.Helper()
	st, err := f.fsm.Current(context.Background(), uid)
	require.NoError(t, err)
	return st
}

func TestProcessor_Waiting(t *testing.T) {
	f := newFixture(t)
	p := f.processor()
	ctx := context.Background()

	resp, err := p.Process(ctx, "開始面試", state.StateWaiting, uid)
	require.NoError(t, err)
	assert.Contains(t, resp, "自我介紹階段")

	resp, err = p.Process(ctx, "hello", state.StateWaiting, uid)
	require.NoError(t, err)
	assert.Contains(t, resp, "歡迎使用智能面試系統")

	sessions, err := f.fsm.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestProcessor_Intro(t *testing.T) {
	testCases := []struct {
		name          string
		message       string
		wantContains  string
		wantCollected string
	}{
		{name: "start keyword repeats guidance", message: "開始", wantContains: "完成後請輸入", wantCollected: ""},
		{name: "done phrase acknowledged", message: "我說完了", wantContains: "將進入分析階段", wantCollected: ""},
		{name: "fragment collected", message: "我有五年後端經驗", wantContains: "已記錄您的自我介紹內容", wantCollected: "我有五年後端經驗"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			resp, err := f.processor().Process(context.Background(), tc.message, state.StateIntro, uid)
			require.NoError(t, err)
			assert.Contains(t, resp, tc.wantContains)

			collected, err := f.collector.Collected(context.Background(), uid)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCollected, collected)
		})
	}
}

func TestProcessor_IntroCollectionIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.collector = failingCollector{intro.NewMemoryCollector()}

	resp, err := f.processor().Process(context.Background(), "我是工程師", state.StateIntro, uid)
	require.NoError(t, err)
	assert.Contains(t, resp, "已記錄您的自我介紹內容")
}

func TestProcessor_IntroAnalysis(t *testing.T) {
	ctx := context.Background()

	t.Run("success forces questioning", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fsm.ForceState(ctx, uid, state.StateIntroAnalysis))
		require.NoError(t, f.collector.Collect(ctx, uid, "我是小明"))
		require.NoError(t, f.collector.Collect(ctx, uid, "熟悉 Go"))

		f.intros.On("AnalyzeIntro", mock.Anything, uid, "我是小明\n熟悉 Go").
			Return(&domain.AnalysisResult{Success: true, Result: "📊 分析結果"}, nil).Once()

		resp, err := f.processor().Process(ctx, "介紹完了", state.StateIntroAnalysis, uid)
		require.NoError(t, err)
		assert.Equal(t, "📊 分析結果\n\n分析完成，將進入面試階段。系統會在 5 秒後提供第一個問題。", resp)
		assert.Equal(t, state.StateQuestioning, currentState(t, f))
		f.assertExpectations(t)
	})

	t.Run("falls back to the message", func(t *testing.T) {
		f := newFixture(t)
		f.intros.On("AnalyzeIntro", mock.Anything, uid, "我是小華").
			Return(&domain.AnalysisResult{Success: true, Result: "ok"}, nil).Once()

		_, err := f.processor().Process(ctx, "  我是小華  ", state.StateIntroAnalysis, uid)
		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("nothing to analyze", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fsm.ForceState(ctx, uid, state.StateIntroAnalysis))

		resp, err := f.processor().Process(ctx, "   ", state.StateIntroAnalysis, uid)
		require.NoError(t, err)
		assert.Contains(t, resp, "尚未收集到您的自我介紹內容")
		assert.Equal(t, state.StateIntroAnalysis, currentState(t, f))
		f.intros.AssertNotCalled(t, "AnalyzeIntro", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("error keeps state and allows retry", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fsm.ForceState(ctx, uid, state.StateIntroAnalysis))
		require.NoError(t, f.collector.Collect(ctx, uid, "我的介紹"))

		f.intros.On("AnalyzeIntro", mock.Anything, uid, "我的介紹").Return(nil, errCollaborator).Once()
		resp, err := f.processor().Process(ctx, "介紹完了", state.StateIntroAnalysis, uid)
		require.NoError(t, err)
		assert.Equal(t, "📊 自我介紹分析出現問題：collaborator unavailable", resp)
		assert.Equal(t, state.StateIntroAnalysis, currentState(t, f))

		f.intros.On("AnalyzeIntro", mock.Anything, uid, "我的介紹").
			Return(&domain.AnalysisResult{Success: true, Result: "done"}, nil).Once()
		_, err = f.processor().Process(ctx, "再試一次", state.StateIntroAnalysis, uid)
		require.NoError(t, err)
		assert.Equal(t, state.StateQuestioning, currentState(t, f))
		f.assertExpectations(t)
	})

	t.Run("unsuccessful result still advances", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fsm.ForceState(ctx, uid, state.StateIntroAnalysis))
		f.intros.On("AnalyzeIntro", mock.Anything, uid, "hi").
			Return(&domain.AnalysisResult{Success: false, Result: "分析服務未啟用"}, nil).Once()

		resp, err := f.processor().Process(ctx, "hi", state.StateIntroAnalysis, uid)
		require.NoError(t, err)
		assert.Equal(t, "分析服務未啟用", resp)
		assert.Equal(t, state.StateQuestioning, currentState(t, f))
	})
}

func TestProcessor_QuestionRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and overwrites the current question", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fsm.ForceState(ctx, uid, state.StateQuestioning))

		f.bank.On("NextQuestion", mock.Anything).Return(&domain.QuestionResult{
			Success:  true,
			Question: domain.Question{Question: "Q1", StandardAnswer: "A1"},
		}, nil).Once()
		f.bank.On("NextQuestion", mock.Anything).Return(&domain.QuestionResult{
			Success:  true,
			Question: domain.Question{Question: "Q2", StandardAnswer: "A2", Category: "Go", Difficulty: "困難"},
			Result:   "rendered Q2",
		}, nil).Once()

		resp, err := f.processor().Process(ctx, "請給我問題", state.StateQuestioning, uid)
		require.NoError(t, err)
		assert.Equal(t, "🎯 面試問題\n\n類別：一般\n難度：中等\n\n問題：Q1\n\n請作答，送出後我會立即分析並給出評分。", resp)

		resp, err = f.processor().Process(ctx, "下一題", state.StateQuestioning, uid)
		require.NoError(t, err)
		assert.Equal(t, "rendered Q2", resp)

		session, err := f.fsm.Session(ctx, uid)
		require.NoError(t, err)
		require.NotNil(t, session.CurrentQuestion)
		assert.Equal(t, domain.Question{Question: "Q2", StandardAnswer: "A2", Category: "Go", Difficulty: "困難"}, *session.CurrentQuestion)
		f.assertExpectations(t)
	})

	t.Run("bank failures become text", func(t *testing.T) {
		f := newFixture(t)
		f.bank.On("NextQuestion", mock.Anything).Return(&domain.QuestionResult{Success: false}, nil).Once()
		f.bank.On("NextQuestion", mock.Anything).Return(nil, errCollaborator).Once()

		resp, err := f.processor().Process(ctx, "下一題", state.StateQuestioning, uid)
		require.NoError(t, err)
		assert.Contains(t, resp, "目前無法取得面試問題")

		resp, err = f.processor().Process(ctx, "下一題", state.StateQuestioning, uid)
		require.NoError(t, err)
		assert.Equal(t, "取得面試問題失敗：collaborator unavailable", resp)

		session, err := f.fsm.Session(ctx, uid)
		require.NoError(t, err)
		assert.Nil(t, session.CurrentQuestion)
	})
}

func TestProcessor_Answers(t *testing.T) {
	ctx := context.Background()

	t.Run("no current question skips the analyzer", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.processor().Process(ctx, "我的回答", state.StateQuestioning, uid)
		require.NoError(t, err)
		assert.Equal(t, "目前沒有待回答的題目。請先輸入『請給我問題』取得題目。", resp)
		f.answers.AssertNotCalled(t, "AnalyzeAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	testCases := []struct {
		name     string
		result   *domain.AnalysisResult
		err      error
		expected string
	}{
		{name: "analysis text", result: &domain.AnalysisResult{Success: true, Result: "得分 80"}, expected: "得分 80"},
		{name: "empty analysis", result: &domain.AnalysisResult{Success: true}, expected: "分析完成。"},
		{name: "unsuccessful analysis", result: &domain.AnalysisResult{Success: false, Result: "無法解析"}, expected: "無法解析"},
		{name: "analysis error", err: errCollaborator, expected: "回答分析失敗：collaborator unavailable"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.fsm.ForceState(ctx, uid, state.StateQuestioning))
			require.NoError(t, f.fsm.SetCurrentQuestion(ctx, uid, domain.Question{Question: "Q", StandardAnswer: "SA"}))

			f.answers.On("AnalyzeAnswer", mock.Anything, "我的回答", "Q", "SA").Return(tc.result, tc.err).Once()

			resp, err := f.processor().Process(ctx, "我的回答", state.StateQuestioning, uid)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, resp)
			f.assertExpectations(t)
		})
	}
}

func TestProcessor_CompletedAndUnknown(t *testing.T) {
	f := newFixture(t)
	p := f.processor()
	ctx := context.Background()

	resp, err := p.Process(ctx, "please restart", state.StateCompleted, uid)
	require.NoError(t, err)
	assert.Contains(t, resp, "面試已重置")

	resp, err = p.Process(ctx, "謝謝", state.StateCompleted, uid)
	require.NoError(t, err)
	assert.Contains(t, resp, "說「重新開始」")

	resp, err = p.Process(ctx, "hi", state.State("paused"), uid)
	require.NoError(t, err)
	assert.Equal(t, "未知狀態，請重新開始面試。", resp)
}
