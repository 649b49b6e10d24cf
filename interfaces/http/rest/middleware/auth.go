package middleware

import (
	"context"
	"net/http"
	"strings"

	"evotree-backend/domain/core/entities"
	pkgerrors "evotree-backend/pkg/errors"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticator resolves a bearer token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entities.User, error)
}

// Authenticate requires a valid bearer token and stores the resolved user in
// the request context.
func Authenticate(authn Authenticator, errorHandler *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractToken(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				errorHandler.Handle(w, r, err)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if pkgerrors.IsUnauthorized(err) {
					w.Header().Set("WWW-Authenticate", "Bearer")
				}
				errorHandler.Handle(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *entities.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*entities.User, bool) {
	user, ok := ctx.Value(userContextKey).(*entities.User)
	return user, ok && user != nil
}

// extractToken reads the bearer token from the Authorization header
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", pkgerrors.NewUnauthorizedError("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", pkgerrors.NewUnauthorizedError("Invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}
