package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"mp4-creator/internal/logging"
)

// TokenHeader is the alternative to an Authorization: Bearer header.
const TokenHeader = "X-API-Token"

// TokenAuth rejects requests that do not carry a token matching the bcrypt
// hash. An empty hash disables the check.
func TokenAuth(hash string) func(http.Handler) http.Handler {
	if hash == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		logging.Warn("API_TOKEN_HASH is not a valid bcrypt hash; all protected requests will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
				logging.Debug("Rejected unauthenticated request to %s", sanitizeLogField(r.URL.Path))
				w.Header().Set("WWW-Authenticate", `Bearer realm="mp4-creator"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				if err := json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"}); err != nil {
					logging.Error("failed to encode JSON response: %v", err)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}
