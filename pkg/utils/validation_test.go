package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linkInput struct {
	FromID int64  `validate:"required,gt=0"`
	ToID   int64  `validate:"required,gt=0,nefield=FromID"`
	Type   string `validate:"required,max=5"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(linkInput{FromID: 1, ToID: 2, Type: "fork"}))

	err := ValidateStruct(linkInput{FromID: 3, ToID: 3, Type: "inspired"})
	require.Error(t, err)

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, "to_id must differ from from_id; type must be at most 5 characters", err.Error())
	assert.Equal(t, map[string]interface{}{
		"to_id": "to_id must differ from from_id",
		"type":  "type must be at most 5 characters",
	}, fields.Details())
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"FromID":    "from_id",
		"Name":      "name",
		"UserIDKey": "user_id_key",
		"ID":        "id",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "plain address", address: "ada@example.com"},
		{name: "empty", address: "", wantErr: true},
		{name: "no domain", address: "ada@", wantErr: true},
		{name: "not an address", address: "not-an-email", wantErr: true},
		{name: "display name form", address: "Ada <ada@example.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// The bare-value check and the struct tag must agree on every address
func TestValidateEmail_MatchesStructTag(t *testing.T) {
	type registration struct {
		Email string `validate:"required,email"`
	}

	for _, address := range []string{"ada@example.com", "ada@", "Ada <ada@example.com>", "a b@example.com"} {
		tagErr := ValidateStruct(registration{Email: address})
		assert.Equal(t, tagErr == nil, ValidateEmail(address) == nil, address)
	}
}
