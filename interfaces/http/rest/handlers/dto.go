package handlers

import (
	"evotree-backend/domain/core/entities"
)

// MechanicRequest is the body of POST and PUT /mechanics
type MechanicRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Year        *int    `json:"year,omitempty"`
}

// MechanicResponse represents a mechanic in API responses
type MechanicResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Year        *int    `json:"year,omitempty"`
}

func toMechanicResponse(m *entities.Mechanic) MechanicResponse {
	return MechanicResponse{
		ID:          m.ID().Int64(),
		Name:        m.Name(),
		Description: m.Description(),
		Year:        m.Year(),
	}
}

// LinkRequest is the body of POST /mechanics/links
type LinkRequest struct {
	FromID int64  `json:"from_id" validate:"required,gt=0"`
	ToID   int64  `json:"to_id" validate:"required,gt=0"`
	Type   string `json:"type" validate:"required,min=1,max=50"`
}

// LinkResponse represents a link in API responses
type LinkResponse struct {
	ID     int64  `json:"id"`
	FromID int64  `json:"from_id"`
	ToID   int64  `json:"to_id"`
	Type   string `json:"type"`
}

func toLinkResponse(l *entities.Link) LinkResponse {
	return LinkResponse{
		ID:     l.ID().Int64(),
		FromID: l.FromID().Int64(),
		ToID:   l.ToID().Int64(),
		Type:   l.Type(),
	}
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// VerifyEmailRequest is the body of POST /auth/verify-email
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse represents an account in API responses
type UserResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	IsVerified bool   `json:"is_verified"`
}

func toUserResponse(u *entities.User) UserResponse {
	return UserResponse{
		ID:         u.ID().Int64(),
		Email:      u.Email(),
		Username:   u.Username(),
		IsVerified: u.IsVerified(),
	}
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}
