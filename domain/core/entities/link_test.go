package entities

import (
	"strings"
	"testing"

	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLink(t *testing.T) {
	tests := []struct {
		name     string
		fromID   valueobjects.MechanicID
		toID     valueobjects.MechanicID
		linkType string
		wantErr  bool
		errMsg   string
		wantType string
	}{
		{
			name:     "valid link",
			fromID:   1,
			toID:     2,
			linkType: "inspired_by",
			wantType: "inspired_by",
		},
		{
			name:     "type is trimmed",
			fromID:   1,
			toID:     2,
			linkType: " variant ",
			wantType: "variant",
		},
		{
			name:     "self loop",
			fromID:   3,
			toID:     3,
			linkType: "inspired_by",
			wantErr:  true,
			errMsg:   "Link cannot point to itself",
		},
		{
			name:     "empty type",
			fromID:   1,
			toID:     2,
			linkType: "   ",
			wantErr:  true,
			errMsg:   "Link type cannot be empty",
		},
		{
			name:     "type too long",
			fromID:   1,
			toID:     2,
			linkType: strings.Repeat("x", 51),
			wantErr:  true,
			errMsg:   "exceeds maximum length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLink(tt.fromID, tt.toID, tt.linkType)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.fromID, l.FromID())
			assert.Equal(t, tt.toID, l.ToID())
			assert.Equal(t, tt.wantType, l.Type())
			assert.True(t, l.ID().IsZero())
		})
	}
}

func TestLink_WithIDAndTouches(t *testing.T) {
	l, err := NewLink(1, 2, "variant")
	require.NoError(t, err)

	persisted := l.WithID(5)
	assert.Equal(t, valueobjects.LinkID(5), persisted.ID())
	assert.True(t, l.ID().IsZero())

	assert.True(t, persisted.Touches(1))
	assert.True(t, persisted.Touches(2))
	assert.False(t, persisted.Touches(3))
}
