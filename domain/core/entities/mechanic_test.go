package entities

import (
	"strings"
	"testing"

	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMechanic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		errMsg   string
		wantName string
	}{
		{
			name:     "valid name",
			input:    "Deck building",
			wantName: "Deck building",
		},
		{
			name:     "name is trimmed",
			input:    "  Worker placement  ",
			wantName: "Worker placement",
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
			errMsg:  "Mechanic name cannot be empty",
		},
		{
			name:    "whitespace only name",
			input:   " \t\n ",
			wantErr: true,
			errMsg:  "Mechanic name cannot be empty",
		},
		{
			name:    "name too long",
			input:   strings.Repeat("a", 256),
			wantErr: true,
			errMsg:  "exceeds maximum length",
		},
		{
			name:     "name at max length",
			input:    strings.Repeat("a", 255),
			wantName: strings.Repeat("a", 255),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMechanic(tt.input, nil, nil)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, m)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, m.Name())
			assert.True(t, m.ID().IsZero())
		})
	}
}

func TestMechanic_Immutability(t *testing.T) {
	description := "Roll and move"
	year := 1935

	m, err := NewMechanic("Roll and move", &description, &year)
	require.NoError(t, err)

	// mutating the inputs does not leak into the entity
	description = "changed"
	year = 0
	assert.Equal(t, "Roll and move", *m.Description())
	assert.Equal(t, 1935, *m.Year())

	// mutating returned pointers does not leak either
	*m.Year() = 2000
	assert.Equal(t, 1935, *m.Year())

	persisted := m.WithID(7)
	assert.Equal(t, valueobjects.MechanicID(7), persisted.ID())
	assert.True(t, m.ID().IsZero(), "WithID returns a copy")

	newYear := 1940
	changed, err := persisted.WithChanges("Roll & move", nil, &newYear)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.MechanicID(7), changed.ID())
	assert.Equal(t, "Roll & move", changed.Name())
	assert.Nil(t, changed.Description())
	assert.Equal(t, "Roll and move", persisted.Name())

	_, err = persisted.WithChanges("  ", nil, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestReconstructMechanic_Validates(t *testing.T) {
	_, err := ReconstructMechanic(3, "", nil, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}
