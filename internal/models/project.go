package models

import (
	"errors"
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectCompleted:
		return true
	default:
		return false
	}
}

// Project is a body of work that engineers are staffed onto.
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	RequiredSkills []string      `json:"required_skills"`
	TeamSize       int           `json:"team_size"`
	Status         ProjectStatus `json:"status"`
	ManagerID      string        `json:"manager_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewProject creates a new Project with initialized timestamps.
func NewProject(name, description, managerID string) *Project {
	now := time.Now()
	return &Project{
		Name:        name,
		Description: description,
		ManagerID:   managerID,
		Status:      ProjectPlanning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Interval returns the project's date range.
func (p *Project) Interval() Interval {
	return Interval{Start: DateOf(p.StartDate), End: DateOf(p.EndDate)}
}

// Validate checks required fields and the date range.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if len(p.Name) > 100 {
		return errors.New("name must be 100 characters or less")
	}
	if strings.TrimSpace(p.Description) == "" {
		return errors.New("description is required")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if DateOf(p.EndDate).Before(DateOf(p.StartDate)) {
		return ErrEndBeforeStart
	}
	if p.TeamSize <= 0 {
		return errors.New("team_size must be positive")
	}
	if !p.Status.Valid() {
		return errors.New("status must be one of: planning, active, completed")
	}
	if p.ManagerID == "" {
		return errors.New("manager_id is required")
	}
	return nil
}

// UniqueStrings trims, drops empties and collapses duplicates while keeping
// first-appearance order.
func UniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
