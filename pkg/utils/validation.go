package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct based on its validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateEmail applies the same rule as the `email` struct tag to a bare value
func ValidateEmail(address string) error {
	return validate.Var(address, "required,email")
}

// FieldError is one failed rule on a request field
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors lists failed rules in struct field order
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	messages := make([]string, len(fe))
	for i, e := range fe {
		messages[i] = e.Message
	}
	return strings.Join(messages, "; ")
}

// Details keys each message by its snake_case field name
func (fe FieldErrors) Details() map[string]interface{} {
	details := make(map[string]interface{}, len(fe))
	for _, e := range fe {
		details[e.Field] = e.Message
	}
	return details
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(FieldErrors, 0, len(validationErrors))
		for _, e := range validationErrors {
			fields = append(fields, FieldError{Field: toSnakeCase(e.Field()), Message: formatFieldError(e)})
		}
		return fields
	}
	return err
}

func formatFieldError(e validator.FieldError) string {
	field := toSnakeCase(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, toSnakeCase(e.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// toSnakeCase turns a Go field name such as FromID into from_id
func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
