package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// formatValidationError converts the first validator failure into a
// client-facing message. Field names are lowered to match the JSON payload.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := jsonField(fe.Field())
			switch fe.Tag() {
			case "required", "required_without":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "email":
				return "invalid request: " + field + " must be a valid email"
			case "url":
				return "invalid request: " + field + " must be a valid URL"
			case "uuid4":
				return "invalid request: " + field + " must be a valid id"
			case "max":
				return fmt.Sprintf("invalid request: %s exceeds maximum of %s", field, fe.Param())
			case "min":
				return fmt.Sprintf("invalid request: %s must have at least %s", field, fe.Param())
			case "gt", "gte":
				return "invalid request: " + field + " is too small"
			case "oneof":
				return fmt.Sprintf("invalid request: %s must be one of %s", field, fe.Param())
			case "len":
				return fmt.Sprintf("invalid request: %s must be %s characters", field, fe.Param())
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

func jsonField(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
