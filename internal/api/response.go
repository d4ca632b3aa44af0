package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the response body of every API endpoint.
type envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("failed to write response", slog.Any("error", err))
	}
}

func (h *Handler) success(w http.ResponseWriter, data any) {
	writeJSON(w, h.log, http.StatusOK, envelope{
		Success:    true,
		Message:    h.texts.T("api.ok"),
		StatusCode: http.StatusOK,
		Data:       data,
	})
}

func (h *Handler) failure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, h.log, status, envelope{
		Success:    false,
		Message:    message,
		StatusCode: status,
		ErrorCode:  code,
	})
}
