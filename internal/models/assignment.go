package models

import (
	"errors"
	"fmt"
	"time"
)

// AssignmentRole is the label describing what an engineer does on a project.
type AssignmentRole string

const (
	AssignmentDeveloper AssignmentRole = "Developer"
	AssignmentTechLead  AssignmentRole = "Tech Lead"
	AssignmentQA        AssignmentRole = "QA"
	AssignmentDesigner  AssignmentRole = "Designer"
	AssignmentDevOps    AssignmentRole = "DevOps"
	AssignmentOther     AssignmentRole = "Other"
)

// Valid reports whether r is a known assignment role.
func (r AssignmentRole) Valid() bool {
	switch r {
	case AssignmentDeveloper, AssignmentTechLead, AssignmentQA,
		AssignmentDesigner, AssignmentDevOps, AssignmentOther:
		return true
	default:
		return false
	}
}

// Allocation bounds, in percentage points.
const (
	MinAllocation = 0
	MaxAllocation = 100
)

// Assignment binds one engineer to one project for a fraction of their time
// over an inclusive range of days.
type Assignment struct {
	ID                   string         `json:"id"`
	EngineerID           string         `json:"engineer_id"`
	ProjectID            string         `json:"project_id"`
	AllocationPercentage int            `json:"allocation_percentage"`
	StartDate            time.Time      `json:"start_date"`
	EndDate              time.Time      `json:"end_date"`
	Role                 AssignmentRole `json:"role"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Interval returns the assignment's date range.
func (a *Assignment) Interval() Interval {
	return Interval{Start: DateOf(a.StartDate), End: DateOf(a.EndDate)}
}

// ActiveAt reports whether the assignment covers the calendar day of t.
func (a *Assignment) ActiveAt(t time.Time) bool {
	return a.Interval().Contains(t)
}

// Validate checks allocation bounds, the role label and the date range.
func (a *Assignment) Validate() error {
	if a.AllocationPercentage < MinAllocation || a.AllocationPercentage > MaxAllocation {
		return fmt.Errorf("allocation_percentage must be between %d and %d", MinAllocation, MaxAllocation)
	}
	if !a.Role.Valid() {
		return errors.New("role must be one of: Developer, Tech Lead, QA, Designer, DevOps, Other")
	}
	if a.StartDate.IsZero() || a.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if DateOf(a.EndDate).Before(DateOf(a.StartDate)) {
		return ErrEndBeforeStart
	}
	return nil
}

// SumAllocation adds up the allocation of the given assignments.
func SumAllocation(assignments []*Assignment) int {
	total := 0
	for _, a := range assignments {
		total += a.AllocationPercentage
	}
	return total
}
