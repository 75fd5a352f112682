package projects

import (
	"fmt"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// parseDateField parses a required YYYY-MM-DD (or RFC 3339) request field.
func parseDateField(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", field)
	}
	return d, nil
}

// parseStatus parses a project status; empty means planning.
func parseStatus(value string) (models.ProjectStatus, error) {
	if value == "" {
		return models.ProjectPlanning, nil
	}
	s := models.ProjectStatus(value)
	if !s.Valid() {
		return "", fmt.Errorf("status must be one of: planning, active, completed")
	}
	return s, nil
}
