package handlers

import (
	"context"
	"fmt"
	"net/http"

	"evotree-backend/application/services"
	"evotree-backend/domain/core/entities"
	"evotree-backend/interfaces/http/rest/middleware"
	pkgerrors "evotree-backend/pkg/errors"

	"go.uber.org/zap"
)

// AuthService is the account use case surface used by the handler
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*entities.User, error)
	VerifyEmail(ctx context.Context, token string) (*entities.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// AuthHandler handles registration, verification and login
type AuthHandler struct {
	base
	service AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		base:    base{errors: errorHandler, logger: logger},
		service: service,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, RegisterResponse{
		Message: fmt.Sprintf("Registration successful. Verification link sent to %s", user.Email()),
		Email:   user.Email(),
	})
}

// VerifyEmail handles POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toUserResponse(user))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   int64(result.ExpiresIn.Seconds()),
		User:        toUserResponse(result.User),
	})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Not authenticated"))
		return
	}

	h.respondJSON(w, http.StatusOK, toUserResponse(user))
}
