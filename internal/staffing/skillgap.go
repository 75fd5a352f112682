package staffing

import (
	"context"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// SkillGapReport compares a project's required skills with the skills of
// every engineer ever assigned to it.
type SkillGapReport struct {
	ProjectID      string   `json:"project_id"`
	RequiredSkills []string `json:"required_skills"`
	AssignedSkills []string `json:"assigned_skills"`
	MissingSkills  []string `json:"missing_skills"`
}

// SkillGap resolves the project's missing skills. Assignments are not
// filtered by date. All lists keep first-appearance order without
// duplicates.
func (s *Service) SkillGap(ctx context.Context, projectID string) (*SkillGapReport, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.Assignments().ListByProject(ctx, project.ID)
	if err != nil {
		return nil, StoreFailure("list project assignments", err)
	}

	var engineerIDs []string
	for _, a := range assignments {
		engineerIDs = append(engineerIDs, a.EngineerID)
	}
	engineerIDs = models.UniqueStrings(engineerIDs)

	users, err := s.store.Users().ListByIDs(ctx, engineerIDs)
	if err != nil {
		return nil, StoreFailure("list assigned engineers", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var assigned []string
	for _, id := range engineerIDs {
		u, ok := byID[id]
		if !ok || !u.IsEngineer() {
			continue
		}
		assigned = append(assigned, u.Skills...)
	}
	assigned = models.UniqueStrings(assigned)

	have := make(map[string]struct{}, len(assigned))
	for _, skill := range assigned {
		have[skill] = struct{}{}
	}
	required := models.UniqueStrings(project.RequiredSkills)
	missing := []string{}
	for _, skill := range required {
		if _, ok := have[skill]; !ok {
			missing = append(missing, skill)
		}
	}

	return &SkillGapReport{
		ProjectID:      project.ID,
		RequiredSkills: required,
		AssignedSkills: assigned,
		MissingSkills:  missing,
	}, nil
}
