package config

import "time"

// DomainConfig holds the configurable business constraints
type DomainConfig struct {
	// Mechanic constraints
	MaxNameLength int

	// Link constraints
	MaxLinkTypeLength int
	AllowSelfLinks    bool

	// User constraints
	MinUsernameLength int
	MaxUsernameLength int
	MinPasswordLength int
	MaxPasswordLength int

	// Token constraints
	EmailTokenTTL time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNameLength: 255,

		MaxLinkTypeLength: 50,
		AllowSelfLinks:    false,

		MinUsernameLength: 3,
		MaxUsernameLength: 255,
		MinPasswordLength: 6,
		// bcrypt ignores everything past 72 bytes
		MaxPasswordLength: 72,

		EmailTokenTTL: 24 * time.Hour,
	}
}
