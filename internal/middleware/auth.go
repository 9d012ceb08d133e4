package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
)

// UserIDContextKey is the context key for the authenticated user's id.
const UserIDContextKey contextKey = "user_id"

// WithUser extracts the shopper's identity from the Authorization header
// (a bearer token carrying the user id, minted by the identity gateway in
// front of this service). Optional: requests without identity pass through
// as guests.
func WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := uuid.Parse(token)
		if err != nil {
			// Unparseable identity is treated as anonymous, not an error.
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser ensures the request carries an authenticated user, returning
// 401 otherwise.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			handler.ErrorResponse(w, r, domain.Unauthorized("auth", "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates admin endpoints behind a shared operator key carried in
// the X-Admin-Key header.
func RequireAdmin(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Admin-Key")
			if adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
				handler.ErrorResponse(w, r, domain.Forbidden("auth.admin", "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID retrieves the authenticated user's id from the context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return id, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}
