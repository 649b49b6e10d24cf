package fixtures

import (
	"fmt"
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
)

// MechanicBuilder helps create test mechanics with default values
type MechanicBuilder struct {
	id          valueobjects.MechanicID
	name        string
	description *string
	year        *int
}

func NewMechanicBuilder() *MechanicBuilder {
	return &MechanicBuilder{
		id:   1,
		name: "Test Mechanic",
	}
}

func (b *MechanicBuilder) WithID(id int64) *MechanicBuilder {
	b.id = valueobjects.MechanicID(id)
	return b
}

func (b *MechanicBuilder) WithName(name string) *MechanicBuilder {
	b.name = name
	return b
}

func (b *MechanicBuilder) WithDescription(description string) *MechanicBuilder {
	b.description = &description
	return b
}

func (b *MechanicBuilder) WithYear(year int) *MechanicBuilder {
	b.year = &year
	return b
}

func (b *MechanicBuilder) Build() (*entities.Mechanic, error) {
	return entities.ReconstructMechanic(b.id, b.name, b.description, b.year)
}

func (b *MechanicBuilder) MustBuild() *entities.Mechanic {
	m, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build mechanic: %v", err))
	}
	return m
}

// Mechanic is shorthand for a persisted mechanic named after its id
func Mechanic(id int64) *entities.Mechanic {
	return NewMechanicBuilder().WithID(id).WithName(fmt.Sprintf("M%d", id)).MustBuild()
}

// LinkBuilder helps create test links with default values
type LinkBuilder struct {
	id       valueobjects.LinkID
	fromID   valueobjects.MechanicID
	toID     valueobjects.MechanicID
	linkType string
}

func NewLinkBuilder() *LinkBuilder {
	return &LinkBuilder{
		id:       1,
		fromID:   1,
		toID:     2,
		linkType: "inspired_by",
	}
}

func (b *LinkBuilder) WithID(id int64) *LinkBuilder {
	b.id = valueobjects.LinkID(id)
	return b
}

func (b *LinkBuilder) From(id int64) *LinkBuilder {
	b.fromID = valueobjects.MechanicID(id)
	return b
}

func (b *LinkBuilder) To(id int64) *LinkBuilder {
	b.toID = valueobjects.MechanicID(id)
	return b
}

func (b *LinkBuilder) WithType(linkType string) *LinkBuilder {
	b.linkType = linkType
	return b
}

func (b *LinkBuilder) Build() (*entities.Link, error) {
	return entities.ReconstructLink(b.id, b.fromID, b.toID, b.linkType)
}

func (b *LinkBuilder) MustBuild() *entities.Link {
	l, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build link: %v", err))
	}
	return l
}

// Link is shorthand for a persisted link
func Link(id, from, to int64, linkType string) *entities.Link {
	return NewLinkBuilder().WithID(id).From(from).To(to).WithType(linkType).MustBuild()
}

// UserBuilder helps create test users with default values
type UserBuilder struct {
	id             valueobjects.UserID
	email          string
	username       string
	hashedPassword string
	verified       bool
	createdAt      time.Time
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		id:             1,
		email:          "ada@example.com",
		username:       "ada",
		hashedPassword: "hashed:password123",
		createdAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (b *UserBuilder) WithID(id int64) *UserBuilder {
	b.id = valueobjects.UserID(id)
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) Verified() *UserBuilder {
	b.verified = true
	return b
}

func (b *UserBuilder) Build() (*entities.User, error) {
	return entities.ReconstructUser(b.id, b.email, b.username, b.hashedPassword, b.verified, b.createdAt)
}

func (b *UserBuilder) MustBuild() *entities.User {
	u, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build user: %v", err))
	}
	return u
}
