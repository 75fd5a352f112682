// Package users provides the profile, password and user management endpoints.
package users

import (
	"regexp"
	"strings"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidationError contains validation error details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > 255 {
		return &ValidationError{Field: "email", Message: "email must be at most 255 characters"}
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRole validates a role string.
func ValidateRole(role string) (models.Role, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return "", &ValidationError{Field: "role", Message: err.Error()}
	}
	return r, nil
}

// ValidateSeniority validates an engineer seniority level. Managers carry
// none, so the empty string is accepted.
func ValidateSeniority(s string) (models.Seniority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	level := models.Seniority(s)
	if !level.Valid() {
		return "", &ValidationError{Field: "seniority", Message: "seniority must be one of: junior, mid, senior"}
	}
	return level, nil
}
