package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// Callback actions understood by the bot.
const (
	ActionReset   = "reset"
	ActionHistory = "history"

	ResetAccept  = "yes"
	ResetDecline = "no"
)

// EncodeCallback joins an action and its payload within Telegram's 64 byte
// callback data limit.
func EncodeCallback(unique, data string) (string, error) {
	if unique == "" {
		return "", errors.New("callback action is empty")
	}

	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// DecodeCallback splits callback data produced by EncodeCallback. telebot
// prefixes data of buttons registered with a Unique with a form feed, which
// is stripped here.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	callbackData = strings.TrimPrefix(strings.TrimSpace(callbackData), "\f")
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}
