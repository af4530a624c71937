package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/strv-go/newsletter-publisher/internal/session"
)

// userIDContextKey is the key for storing the authenticated user id in the
// request context.
const userIDContextKey contextKey = "userID"

// RequireSession gates protected endpoints behind an established session: if
// the request carries no session cookie, or the cookie names no session, it
// redirects 303 to /login. Otherwise it injects user_id into the request
// context and proceeds. Per spec.md §7, both failure paths are an Auth error
// and are logged at info.
func RequireSession(store *session.Store, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				logger.Infow("require session: no session cookie", "path", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			userID, err := store.UserID(r.Context(), cookie.Value)
			if err != nil {
				logger.Infow("require session: unknown or expired session", "path", r.URL.Path, "error", err)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user id injected by
// RequireSession. Returns an empty string if not found.
func UserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDContextKey).(string); ok {
		return userID
	}
	return ""
}
