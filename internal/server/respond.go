package server

import (
	"encoding/json"
	"net/http"

	"ocrrelay/internal/logger"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	respondJSON(w, r, code, ErrorResponse{Error: msg, Status: statusError})
}
