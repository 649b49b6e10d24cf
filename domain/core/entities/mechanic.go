package entities

import (
	"evotree-backend/domain/core/valueobjects"
)

// Mechanic is a game mechanic, a node of the evolution graph.
// Values are immutable; WithID and WithChanges return copies.
type Mechanic struct {
	id          valueobjects.MechanicID
	name        valueobjects.MechanicName
	description *string
	year        *int
}

// NewMechanic creates a mechanic that has not been persisted yet
func NewMechanic(name string, description *string, year *int) (*Mechanic, error) {
	return ReconstructMechanic(0, name, description, year)
}

// ReconstructMechanic rebuilds a mechanic from stored data
func ReconstructMechanic(id valueobjects.MechanicID, name string, description *string, year *int) (*Mechanic, error) {
	validName, err := valueobjects.NewMechanicName(name)
	if err != nil {
		return nil, err
	}

	return &Mechanic{
		id:          id,
		name:        validName,
		description: copyString(description),
		year:        copyInt(year),
	}, nil
}

func (m *Mechanic) ID() valueobjects.MechanicID { return m.id }
func (m *Mechanic) Name() string                { return m.name.String() }
func (m *Mechanic) Description() *string        { return copyString(m.description) }
func (m *Mechanic) Year() *int                  { return copyInt(m.year) }

// WithID returns a copy carrying the storage-assigned id
func (m *Mechanic) WithID(id valueobjects.MechanicID) *Mechanic {
	clone := *m
	clone.id = id
	clone.description = copyString(m.description)
	clone.year = copyInt(m.year)
	return &clone
}

// WithChanges returns a validated copy with the given fields replaced
func (m *Mechanic) WithChanges(name string, description *string, year *int) (*Mechanic, error) {
	return ReconstructMechanic(m.id, name, description, year)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
