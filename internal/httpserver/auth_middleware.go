package httpserver

import (
	"context"
	"net/http"
	"strings"

	"chatcore/internal/domain"
	"chatcore/internal/security"
)

type contextKey string

const userIDContextKey contextKey = "currentUserID"

// WithUserID returns a new context carrying the current user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// CurrentUserID extracts the current user id from context, zero if absent.
func CurrentUserID(r *http.Request) int64 {
	if v := r.Context().Value(userIDContextKey); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// AuthMiddleware validates the Bearer token and attaches the caller's user id
// to the context. Identity itself is owned externally; the directory lookup
// only rejects ids the directory has never seen.
func AuthMiddleware(tokens *security.TokenService, profiles domain.ProfileDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			userID, err := tokens.Parse(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			profile, err := profiles.GetProfile(r.Context(), userID)
			if err != nil || profile == nil {
				http.Error(w, "user not found", http.StatusUnauthorized)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
