package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"evotree-backend/domain/config"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/utils"
)

// MechanicName is the trimmed, non-empty name of a mechanic
type MechanicName struct {
	value string
}

// NewMechanicName validates a name using the default configuration
func NewMechanicName(name string) (MechanicName, error) {
	return NewMechanicNameWithConfig(name, config.DefaultDomainConfig())
}

// NewMechanicNameWithConfig validates a name against cfg
func NewMechanicNameWithConfig(name string, cfg *config.DomainConfig) (MechanicName, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return MechanicName{}, pkgerrors.NewValidationError("Mechanic name cannot be empty")
	}
	if utf8.RuneCountInString(name) > cfg.MaxNameLength {
		return MechanicName{}, pkgerrors.NewValidationError(
			fmt.Sprintf("Mechanic name exceeds maximum length of %d characters", cfg.MaxNameLength))
	}

	return MechanicName{value: name}, nil
}

func (n MechanicName) String() string { return n.value }

// LinkType is the free-text relationship label of a link, e.g. "inspired_by"
type LinkType struct {
	value string
}

// NewLinkType validates a link type using the default configuration
func NewLinkType(linkType string) (LinkType, error) {
	return NewLinkTypeWithConfig(linkType, config.DefaultDomainConfig())
}

// NewLinkTypeWithConfig validates a link type against cfg
func NewLinkTypeWithConfig(linkType string, cfg *config.DomainConfig) (LinkType, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	linkType = strings.TrimSpace(linkType)
	if linkType == "" {
		return LinkType{}, pkgerrors.NewValidationError("Link type cannot be empty")
	}
	if utf8.RuneCountInString(linkType) > cfg.MaxLinkTypeLength {
		return LinkType{}, pkgerrors.NewValidationError(
			fmt.Sprintf("Link type exceeds maximum length of %d characters", cfg.MaxLinkTypeLength))
	}

	return LinkType{value: linkType}, nil
}

func (t LinkType) String() string { return t.value }

// Email is a syntactically valid email address
type Email struct {
	value string
}

// NewEmail validates and normalizes an address
func NewEmail(address string) (Email, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Email{}, pkgerrors.NewValidationError("Email is required")
	}

	if err := utils.ValidateEmail(address); err != nil {
		return Email{}, pkgerrors.NewValidationError("Email is not a valid address")
	}

	return Email{value: address}, nil
}

func (e Email) String() string { return e.value }

// Equals compares addresses case-insensitively
func (e Email) Equals(other Email) bool {
	return strings.EqualFold(e.value, other.value)
}
