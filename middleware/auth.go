package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-storefront/models"
	"go-storefront/services"
)

// Key type for context
type contextKey string

const (
	UserContextKey  = contextKey("user")
	tokenContextKey = contextKey("token")
)

// AuthMiddleware resolves the bearer token to the signed-in profile and attaches it to the context
func AuthMiddleware(identity *services.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			user, err := identity.Authenticate(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, tokenContextKey, parts[1])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware ensures that the user has admin privileges. The role on the profile was
// resolved by the authorization policy when the session was loaded.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r).IsAdmin() {
			http.Error(w, "Forbidden: Admins only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the profile attached by AuthMiddleware, or nil.
func CurrentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserContextKey).(*models.User)
	return user
}

// Token returns the bearer token accepted by AuthMiddleware.
func Token(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey).(string)
	return token
}
