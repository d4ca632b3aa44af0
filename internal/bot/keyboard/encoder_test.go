package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/internal/bot/keyboard"
)

func TestEncodeCallback(t *testing.T) {
	tests := []struct {
		name      string
		unique    string
		data      string
		want      string
		wantError bool
	}{
		{name: "with data", unique: "history", data: "2", want: "history:2"},
		{name: "without data", unique: "reset", want: "reset"},
		{name: "empty action", unique: "", data: "x", wantError: true},
		{name: "exceeds limit", unique: strings.Repeat("x", keyboard.CallbackDataLimitBytes+1), wantError: true},
		{name: "payload exceeds limit", unique: "history", data: strings.Repeat("9", keyboard.CallbackDataLimitBytes), wantError: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyboard.EncodeCallback(tt.unique, tt.data)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCallback(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantUnique string
		wantData   string
		wantErr    bool
	}{
		{name: "unique and data", input: "history:3", wantUnique: "history", wantData: "3"},
		{name: "only unique", input: "reset", wantUnique: "reset"},
		{name: "multiple separators", input: "action:part1:part2", wantUnique: "action", wantData: "part1:part2"},
		{name: "telebot unique prefix", input: "\freset:yes", wantUnique: "reset", wantData: "yes"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			unique, data, err := keyboard.DecodeCallback(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUnique, unique)
			assert.Equal(t, tt.wantData, data)
		})
	}
}
