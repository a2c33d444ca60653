package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
)

// AccessTokenCookie is the cookie the web UI stores its access token in.
const AccessTokenCookie = "taskpilot_access_token"

type AuthMiddleware struct {
	Tokens domain.TokenValidator
	Logger *slog.Logger
}

func NewAuthMiddleware(tokens domain.TokenValidator, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		Tokens: tokens,
		Logger: logger,
	}
}

// ==============================================================================
// Identity
// ==============================================================================

func (m *AuthMiddleware) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := m.extractToken(r)

		if tokenString == "" {
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.Tokens.ValidateAccessToken(tokenString)
		if err != nil {
			m.Logger.Debug("Rejected access token", slog.Any("error", err))
			writeJSONError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), domain.UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Header first for CLI clients, then the cookie for the web UI.
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"message": "` + message + `"}`))
}
