package server

import (
	"crypto/subtle"
	"net/http"

	"ocrrelay/internal/logger"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "x-api-key"

// RequireAPIKey rejects requests whose x-api-key header does not match key.
// The body is left unread on rejection. An empty key rejects everything.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.WithContext(r.Context()).Warn().
					Bool("header_present", got != "").
					Msg("Rejected request with invalid API key")
				respondError(w, r, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
