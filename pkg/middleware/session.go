package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
	"github.com/utafrali/GameStoreGo/pkg/httputil"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// SessionSource reports the storefront's signed-in user. Subject returns ""
// for guests.
type SessionSource interface {
	IsAuthenticated() bool
	Subject() string
}

// Session stores the signed-in user's id in the request context so loggers
// and handlers can attribute work to it.
func Session(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src.IsAuthenticated() {
				if sub := src.Subject(); sub != "" {
					r = r.WithContext(context.WithValue(r.Context(), userIDKey, sub))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests with 401 while the storefront is in guest
// mode.
func RequireSession(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !src.IsAuthenticated() {
				httputil.WriteError(w, r, apperrors.Unauthorized("sign in required"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
