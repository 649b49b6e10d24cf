package entities

import (
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"
)

// Link is a typed directed edge from one mechanic to another
type Link struct {
	id       valueobjects.LinkID
	fromID   valueobjects.MechanicID
	toID     valueobjects.MechanicID
	linkType valueobjects.LinkType
}

// NewLink creates a link that has not been persisted yet
func NewLink(fromID, toID valueobjects.MechanicID, linkType string) (*Link, error) {
	return ReconstructLink(0, fromID, toID, linkType)
}

// ReconstructLink rebuilds a link from stored data
func ReconstructLink(id valueobjects.LinkID, fromID, toID valueobjects.MechanicID, linkType string) (*Link, error) {
	if fromID == toID {
		return nil, pkgerrors.NewValidationError("Link cannot point to itself")
	}

	validType, err := valueobjects.NewLinkType(linkType)
	if err != nil {
		return nil, err
	}

	return &Link{
		id:       id,
		fromID:   fromID,
		toID:     toID,
		linkType: validType,
	}, nil
}

func (l *Link) ID() valueobjects.LinkID         { return l.id }
func (l *Link) FromID() valueobjects.MechanicID  { return l.fromID }
func (l *Link) ToID() valueobjects.MechanicID    { return l.toID }
func (l *Link) Type() string                    { return l.linkType.String() }

// WithID returns a copy carrying the storage-assigned id
func (l *Link) WithID(id valueobjects.LinkID) *Link {
	clone := *l
	clone.id = id
	return &clone
}

// Touches reports whether the link starts or ends at the mechanic
func (l *Link) Touches(id valueobjects.MechanicID) bool {
	return l.fromID == id || l.toID == id
}
