package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/internal/bot/keyboard"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/state"
)

func TestForState(t *testing.T) {
	translator := i18n.MustLoad(i18n.DefaultLang).Translator(i18n.DefaultLang)

	testCases := []struct {
		state state.State
		rows  [][]string
	}{
		{state: state.StateWaiting, rows: [][]string{{"開始面試"}}},
		{state: state.StateIntro, rows: [][]string{{"介紹完了"}, {"重新開始"}}},
		{state: state.StateIntroAnalysis, rows: [][]string{{"開始問答"}, {"重新開始"}}},
		{state: state.StateQuestioning, rows: [][]string{{"下一題", "結束"}, {"重新開始"}}},
		{state: state.StateCompleted, rows: [][]string{{"重新開始"}}},
		{state: state.State("bogus"), rows: [][]string{{"開始面試"}}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.state), func(t *testing.T) {
			markup := keyboard.ForState(translator, tc.state)
			assert.True(t, markup.ResizeKeyboard)

			require.Len(t, markup.ReplyKeyboard, len(tc.rows))
			for i, row := range tc.rows {
				require.Len(t, markup.ReplyKeyboard[i], len(row))
				for j, text := range row {
					assert.Equal(t, text, markup.ReplyKeyboard[i][j].Text)
				}
			}
		})
	}
}

// Every button must drive the flow the same way typing its label does.
func TestForState_ButtonsAreKeywords(t *testing.T) {
	translator := i18n.MustLoad(i18n.DefaultLang).Translator(i18n.DefaultLang)

	for _, st := range state.All() {
		for _, row := range keyboard.ForState(translator, st).ReplyKeyboard {
			for _, btn := range row {
				known := state.StartKeywords.Equals(btn.Text) ||
					state.IntroDoneKeywords.Equals(btn.Text) ||
					state.BeginQuestioningKeywords.Equals(btn.Text) ||
					state.ExitKeywords.Equals(btn.Text) ||
					state.RestartKeywords.Equals(btn.Text) ||
					btn.Text == "下一題"
				assert.True(t, known, "button %q in %s", btn.Text, st)
			}
		}
	}
}
