package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"evotree-backend/domain/core/entities"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubAuthenticator struct {
	user *entities.User
	err  error
	got  string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*entities.User, error) {
	s.got = token
	return s.user, s.err
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(ctx context.Context, ip string) (bool, error) { return s.allowed, s.err }
func (s stubLimiter) Limit() int                                         { return 5 }

func TestAuthenticate(t *testing.T) {
	errorHandler := pkgerrors.NewErrorHandler(zap.NewNop(), false)
	verified := fixtures.NewUserBuilder().WithID(7).WithEmail("grace@example.com").WithUsername("grace").Verified().MustBuild()

	tests := []struct {
		name       string
		header     string
		authn      *stubAuthenticator
		wantStatus int
		wantToken  string
	}{
		{name: "missing header", authn: &stubAuthenticator{}, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", authn: &stubAuthenticator{}, wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer  ", authn: &stubAuthenticator{}, wantStatus: http.StatusUnauthorized},
		{
			name:       "unverified user",
			header:     "Bearer tok",
			authn:      &stubAuthenticator{err: pkgerrors.NewForbiddenError("User email not verified")},
			wantStatus: http.StatusForbidden,
			wantToken:  "tok",
		},
		{name: "valid token", header: "bearer tok", authn: &stubAuthenticator{user: verified}, wantStatus: http.StatusOK, wantToken: "tok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *entities.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Authenticate(tt.authn, errorHandler)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantToken, tt.authn.got)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, verified, seen)
			}
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}

func TestRateLimit(t *testing.T) {
	errorHandler := pkgerrors.NewErrorHandler(zap.NewNop(), false)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		limiter    stubLimiter
		wantStatus int
	}{
		{name: "allowed", limiter: stubLimiter{allowed: true}, wantStatus: http.StatusOK},
		{name: "denied", limiter: stubLimiter{allowed: false}, wantStatus: http.StatusTooManyRequests},
		{name: "limiter failure lets request through", limiter: stubLimiter{err: errors.New("boom")}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			rec := httptest.NewRecorder()

			RateLimit(tt.limiter, errorHandler, zap.NewNop())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", clientIP(req))
}
