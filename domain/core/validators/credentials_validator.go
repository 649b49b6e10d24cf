package validators

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"evotree-backend/domain/config"
	"evotree-backend/pkg/errors"
)

// CredentialsValidator checks registration input against the account rules
type CredentialsValidator struct {
	minUsername int
	maxUsername int
	minPassword int
	maxPassword int
}

// NewCredentialsValidator creates a validator from the domain configuration
func NewCredentialsValidator(cfg *config.DomainConfig) *CredentialsValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &CredentialsValidator{
		minUsername: cfg.MinUsernameLength,
		maxUsername: cfg.MaxUsernameLength,
		minPassword: cfg.MinPasswordLength,
		maxPassword: cfg.MaxPasswordLength,
	}
}

// ValidateUsername checks length and rejects control characters
func (v *CredentialsValidator) ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	length := utf8.RuneCountInString(username)

	if length < v.minUsername {
		return errors.NewValidationError(
			fmt.Sprintf("Username must be at least %d characters", v.minUsername))
	}
	if length > v.maxUsername {
		return errors.NewValidationError(
			fmt.Sprintf("Username must be at most %d characters", v.maxUsername))
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return errors.NewValidationError("Username contains invalid characters")
		}
	}
	return nil
}

// ValidatePassword checks the password length in characters and bcrypt bytes
func (v *CredentialsValidator) ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < v.minPassword {
		return errors.NewValidationError(
			fmt.Sprintf("Password must be at least %d characters", v.minPassword))
	}
	if len(password) > v.maxPassword {
		return errors.NewValidationError(
			fmt.Sprintf("Password must be at most %d bytes", v.maxPassword))
	}
	return nil
}
