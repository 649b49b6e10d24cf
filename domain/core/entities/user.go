package entities

import (
	"strings"
	"time"

	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"
)

// User is a registered account
type User struct {
	id             valueobjects.UserID
	email          valueobjects.Email
	username       string
	hashedPassword string
	isVerified     bool
	createdAt      time.Time
}

// NewUser creates an unverified user that has not been persisted yet
func NewUser(email, username, hashedPassword string, now time.Time) (*User, error) {
	return ReconstructUser(0, email, username, hashedPassword, false, now)
}

// ReconstructUser rebuilds a user from stored data
func ReconstructUser(id valueobjects.UserID, email, username, hashedPassword string, isVerified bool, createdAt time.Time) (*User, error) {
	validEmail, err := valueobjects.NewEmail(email)
	if err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, pkgerrors.NewValidationError("Username is required")
	}
	if hashedPassword == "" {
		return nil, pkgerrors.NewValidationError("Password hash is required")
	}

	return &User{
		id:             id,
		email:          validEmail,
		username:       username,
		hashedPassword: hashedPassword,
		isVerified:     isVerified,
		createdAt:      createdAt.UTC(),
	}, nil
}

func (u *User) ID() valueobjects.UserID { return u.id }
func (u *User) Email() string           { return u.email.String() }
func (u *User) Username() string        { return u.username }
func (u *User) HashedPassword() string  { return u.hashedPassword }
func (u *User) IsVerified() bool        { return u.isVerified }
func (u *User) CreatedAt() time.Time    { return u.createdAt }

// WithID returns a copy carrying the storage-assigned id
func (u *User) WithID(id valueobjects.UserID) *User {
	clone := *u
	clone.id = id
	return &clone
}

// Verified returns a copy with the email marked as verified
func (u *User) Verified() *User {
	clone := *u
	clone.isVerified = true
	return &clone
}

// EmailToken is a single-use email verification token
type EmailToken struct {
	id        int64
	userID    valueobjects.UserID
	token     string
	createdAt time.Time
	expiresAt time.Time
	isUsed    bool
}

// NewEmailToken creates a token for user valid for ttl from now
func NewEmailToken(userID valueobjects.UserID, token string, now time.Time, ttl time.Duration) (*EmailToken, error) {
	return ReconstructEmailToken(0, userID, token, now, now.Add(ttl), false)
}

// ReconstructEmailToken rebuilds a token from stored data
func ReconstructEmailToken(id int64, userID valueobjects.UserID, token string, createdAt, expiresAt time.Time, isUsed bool) (*EmailToken, error) {
	if userID.IsZero() {
		return nil, pkgerrors.NewValidationError("Token must belong to a user")
	}
	if token == "" {
		return nil, pkgerrors.NewValidationError("Token cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, pkgerrors.NewValidationError("Token must expire after it is created")
	}

	return &EmailToken{
		id:        id,
		userID:    userID,
		token:     token,
		createdAt: createdAt.UTC(),
		expiresAt: expiresAt.UTC(),
		isUsed:    isUsed,
	}, nil
}

func (t *EmailToken) ID() int64                  { return t.id }
func (t *EmailToken) UserID() valueobjects.UserID { return t.userID }
func (t *EmailToken) Token() string              { return t.token }
func (t *EmailToken) CreatedAt() time.Time       { return t.createdAt }
func (t *EmailToken) ExpiresAt() time.Time       { return t.expiresAt }
func (t *EmailToken) IsUsed() bool               { return t.isUsed }

// IsExpired reports whether the token is past its expiry at now
func (t *EmailToken) IsExpired(now time.Time) bool {
	return !now.Before(t.expiresAt)
}

// WithID returns a copy carrying the storage-assigned id
func (t *EmailToken) WithID(id int64) *EmailToken {
	clone := *t
	clone.id = id
	return &clone
}

// Used returns a copy marked as consumed
func (t *EmailToken) Used() *EmailToken {
	clone := *t
	clone.isUsed = true
	return &clone
}
