package events

import (
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"

	"github.com/google/uuid"
)

// Event types
const (
	TypeMechanicCreated   = "mechanic.created"
	TypeMechanicUpdated   = "mechanic.updated"
	TypeMechanicDeleted   = "mechanic.deleted"
	TypeLinkCreated       = "link.created"
	TypeLinkDeleted       = "link.deleted"
	TypeUserRegistered    = "user.registered"
	TypeUserEmailVerified = "user.email_verified"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func newBase(aggregateID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   timestamp.UTC(),
		Version:     1,
	}
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Mechanic Events

// MechanicCreated is raised when a new mechanic is stored
type MechanicCreated struct {
	BaseEvent
	MechanicID valueobjects.MechanicID `json:"mechanic_id"`
	Name       string                  `json:"name"`
	Year       *int                    `json:"year,omitempty"`
}

// NewMechanicCreated creates a MechanicCreated event
func NewMechanicCreated(m *entities.Mechanic, timestamp time.Time) MechanicCreated {
	return MechanicCreated{
		BaseEvent:  newBase(m.ID().String(), TypeMechanicCreated, timestamp),
		MechanicID: m.ID(),
		Name:       m.Name(),
		Year:       m.Year(),
	}
}

// MechanicUpdated is raised when a mechanic is changed
type MechanicUpdated struct {
	BaseEvent
	MechanicID valueobjects.MechanicID `json:"mechanic_id"`
	OldName    string                  `json:"old_name"`
	NewName    string                  `json:"new_name"`
}

// NewMechanicUpdated creates a MechanicUpdated event
func NewMechanicUpdated(before, after *entities.Mechanic, timestamp time.Time) MechanicUpdated {
	return MechanicUpdated{
		BaseEvent:  newBase(after.ID().String(), TypeMechanicUpdated, timestamp),
		MechanicID: after.ID(),
		OldName:    before.Name(),
		NewName:    after.Name(),
	}
}

// MechanicDeleted is raised when a mechanic and its links are removed
type MechanicDeleted struct {
	BaseEvent
	MechanicID valueobjects.MechanicID `json:"mechanic_id"`
	Name       string                  `json:"name"`
}

// NewMechanicDeleted creates a MechanicDeleted event
func NewMechanicDeleted(m *entities.Mechanic, timestamp time.Time) MechanicDeleted {
	return MechanicDeleted{
		BaseEvent:  newBase(m.ID().String(), TypeMechanicDeleted, timestamp),
		MechanicID: m.ID(),
		Name:       m.Name(),
	}
}

// Link Events

// LinkCreated is raised when two mechanics are connected
type LinkCreated struct {
	BaseEvent
	LinkID   valueobjects.LinkID     `json:"link_id"`
	FromID   valueobjects.MechanicID `json:"from_id"`
	ToID     valueobjects.MechanicID `json:"to_id"`
	LinkType string                  `json:"type"`
}

// NewLinkCreated creates a LinkCreated event
func NewLinkCreated(l *entities.Link, timestamp time.Time) LinkCreated {
	return LinkCreated{
		BaseEvent: newBase(l.ID().String(), TypeLinkCreated, timestamp),
		LinkID:    l.ID(),
		FromID:    l.FromID(),
		ToID:      l.ToID(),
		LinkType:  l.Type(),
	}
}

// LinkDeleted is raised when a link is removed
type LinkDeleted struct {
	BaseEvent
	LinkID valueobjects.LinkID     `json:"link_id"`
	FromID valueobjects.MechanicID `json:"from_id"`
	ToID   valueobjects.MechanicID `json:"to_id"`
}

// NewLinkDeleted creates a LinkDeleted event
func NewLinkDeleted(l *entities.Link, timestamp time.Time) LinkDeleted {
	return LinkDeleted{
		BaseEvent: newBase(l.ID().String(), TypeLinkDeleted, timestamp),
		LinkID:    l.ID(),
		FromID:    l.FromID(),
		ToID:      l.ToID(),
	}
}

// User Events

// UserRegistered is raised when an account is created
type UserRegistered struct {
	BaseEvent
	UserID   valueobjects.UserID `json:"user_id"`
	Email    string              `json:"email"`
	Username string              `json:"username"`
}

// NewUserRegistered creates a UserRegistered event
func NewUserRegistered(u *entities.User, timestamp time.Time) UserRegistered {
	return UserRegistered{
		BaseEvent: newBase(u.ID().String(), TypeUserRegistered, timestamp),
		UserID:    u.ID(),
		Email:     u.Email(),
		Username:  u.Username(),
	}
}

// UserEmailVerified is raised when a verification token is consumed
type UserEmailVerified struct {
	BaseEvent
	UserID valueobjects.UserID `json:"user_id"`
}

// NewUserEmailVerified creates a UserEmailVerified event
func NewUserEmailVerified(u *entities.User, timestamp time.Time) UserEmailVerified {
	return UserEmailVerified{
		BaseEvent: newBase(u.ID().String(), TypeUserEmailVerified, timestamp),
		UserID:    u.ID(),
	}
}
