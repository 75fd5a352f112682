package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleEngineer Role = "engineer"
	RoleManager  Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEngineer, RoleManager:
		return true
	default:
		return false
	}
}

// ParseRole converts a string to Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("role must be one of: engineer, manager")
	}
	return r, nil
}

// Seniority is an engineer's experience level.
type Seniority string

const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
)

// Valid reports whether s is a known seniority level.
func (s Seniority) Valid() bool {
	switch s {
	case SeniorityJunior, SeniorityMid, SenioritySenior:
		return true
	default:
		return false
	}
}

// Allowed engineer capacities, in percentage points of a full-time equivalent.
const (
	CapacityPartTime = 50
	CapacityFullTime = 100
)

// User is an engineer or a manager.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	Role         Role      `json:"role"`
	Skills       []string  `json:"skills,omitempty"`
	Seniority    Seniority `json:"seniority,omitempty"`
	MaxCapacity  int       `json:"max_capacity,omitempty"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new User with initialized timestamps.
func NewUser(email, name string, role Role) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsManager returns true if user has the manager role.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// IsEngineer returns true if user has the engineer role.
func (u *User) IsEngineer() bool {
	return u.Role == RoleEngineer
}

// Validate checks the role-dependent field invariants: seniority and
// max capacity are required exactly when the user is an engineer.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(u.Department) == "" {
		return errors.New("department is required")
	}

	switch u.Role {
	case RoleEngineer:
		if !u.Seniority.Valid() {
			return errors.New("seniority must be one of: junior, mid, senior")
		}
		if u.MaxCapacity != CapacityPartTime && u.MaxCapacity != CapacityFullTime {
			return fmt.Errorf("max_capacity must be %d or %d", CapacityPartTime, CapacityFullTime)
		}
	case RoleManager:
		if u.Seniority != "" || u.MaxCapacity != 0 {
			return errors.New("seniority and max_capacity apply to engineers only")
		}
	default:
		return fmt.Errorf("unknown role %q", u.Role)
	}
	return nil
}
