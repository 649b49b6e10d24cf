package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		check  func(error) bool
	}{
		{name: "validation", err: NewValidationError("bad"), status: http.StatusBadRequest, check: IsValidation},
		{name: "not found", err: NewNotFoundError("mechanic"), status: http.StatusNotFound, check: IsNotFound},
		{name: "conflict", err: NewConflictError("taken"), status: http.StatusConflict, check: IsConflict},
		{name: "unauthorized", err: NewUnauthorizedError(""), status: http.StatusUnauthorized, check: IsUnauthorized},
		{name: "forbidden", err: NewForbiddenError(""), status: http.StatusForbidden, check: IsForbidden},
		{name: "rate limit", err: NewRateLimitError(5, "minute"), status: http.StatusTooManyRequests},
		{name: "internal", err: NewInternalError("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			if tt.check != nil {
				wrapped := fmt.Errorf("layer: %w", tt.err)
				assert.True(t, tt.check(wrapped))
			}
		})
	}
}

func TestAppError_ChainHelpers(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewConflictError("Email already registered").WithCode(CodeEmailTaken).WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", err), CodeEmailTaken))
	assert.False(t, HasCode(err, CodeUsernameTaken))
	assert.Contains(t, err.Error(), "caused by: disk full")
	assert.Nil(t, GetAppError(cause))
}

func TestAppError_WithDetailsMerges(t *testing.T) {
	err := NewNotFoundError("link").WithDetails(map[string]interface{}{"id": 4})

	assert.Equal(t, map[string]interface{}{"resource": "link", "id": 4}, err.Details)
}

func TestStatusType(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, StatusType(http.StatusNotFound))
	assert.Equal(t, ErrorTypeInternal, StatusType(http.StatusMethodNotAllowed))
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name        string
		debug       bool
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "app error passes through",
			err:         fmt.Errorf("svc: %w", NewConflictError("Username already taken").WithCode(CodeUsernameTaken)),
			wantStatus:  http.StatusConflict,
			wantType:    "CONFLICT",
			wantMessage: "Username already taken",
			wantCode:    CodeUsernameTaken,
		},
		{
			name:        "plain error is masked",
			err:         fmt.Errorf("sql: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    "INTERNAL",
			wantMessage: internalMessage,
		},
		{
			name:        "plain error shown in debug",
			debug:       true,
			err:         fmt.Errorf("sql: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    "INTERNAL",
			wantMessage: "sql: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(zap.NewNop(), tt.debug)
			rec := httptest.NewRecorder()

			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/mechanics", nil), tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestErrorHandler_MiddlewareRecovers(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "nil map")
}
