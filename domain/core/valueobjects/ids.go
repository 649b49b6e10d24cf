package valueobjects

import (
	"fmt"
	"strconv"
)

// MechanicID identifies a persisted mechanic. Zero means not yet persisted.
type MechanicID int64

// LinkID identifies a persisted link
type LinkID int64

// UserID identifies a persisted user
type UserID int64

// ParseMechanicID parses a positive decimal mechanic id
func ParseMechanicID(s string) (MechanicID, error) {
	v, err := parsePositive("mechanic", s)
	return MechanicID(v), err
}

// ParseLinkID parses a positive decimal link id
func ParseLinkID(s string) (LinkID, error) {
	v, err := parsePositive("link", s)
	return LinkID(v), err
}

// ParseUserID parses a positive decimal user id
func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive("user", s)
	return UserID(v), err
}

func (id MechanicID) Int64() int64  { return int64(id) }
func (id MechanicID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id MechanicID) IsZero() bool   { return id == 0 }

func (id LinkID) Int64() int64  { return int64(id) }
func (id LinkID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id LinkID) IsZero() bool   { return id == 0 }

func (id UserID) Int64() int64  { return int64(id) }
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id UserID) IsZero() bool   { return id == 0 }

func parsePositive(kind, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return v, nil
}
