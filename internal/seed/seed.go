// Package seed loads a small demonstration data set: two managers, three
// engineers, three projects and five assignments. The assignments are
// written straight to the store, so the data set includes an engineer
// booked past capacity that the engine would have refused.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// DefaultPassword is given to every seeded account unless overridden.
const DefaultPassword = "Staffplan-Demo-2025!"

// Options controls a seed run.
type Options struct {
	// Password for every seeded account. Empty means DefaultPassword.
	Password string
	// Reset deletes all existing users, projects and assignments first.
	Reset bool
}

// Result counts what a seed run inserted.
type Result struct {
	Users       int
	Projects    int
	Assignments int
}

type userSpec struct {
	email      string
	name       string
	role       models.Role
	department string
	skills     []string
	seniority  models.Seniority
	capacity   int
}

var users = []userSpec{
	{"mgr1@example.com", "Manager One", models.RoleManager, "Operations", nil, "", 0},
	{"mgr2@example.com", "Manager Two", models.RoleManager, "Engineering", nil, "", 0},
	{"eng1@example.com", "Alice Engineer", models.RoleEngineer, "Frontend", []string{"React", "Node.js"}, models.SeniorityMid, models.CapacityFullTime},
	{"eng2@example.com", "Bob Engineer", models.RoleEngineer, "Backend", []string{"Node.js", "Python"}, models.SenioritySenior, models.CapacityFullTime},
	{"eng3@example.com", "Charlie Engineer", models.RoleEngineer, "DevOps", []string{"DevOps", "Docker", "AWS"}, models.SeniorityJunior, models.CapacityPartTime},
}

type projectSpec struct {
	name        string
	description string
	start, end  string
	skills      []string
	teamSize    int
	status      models.ProjectStatus
	manager     string
}

var projects = []projectSpec{
	{"Project Apollo", "Frontend redesign using React + TypeScript", "2025-06-01", "2025-09-30", []string{"React", "TypeScript"}, 3, models.ProjectActive, "mgr1@example.com"},
	{"Project Zeus", "Backend APIs with Node.js and MongoDB", "2025-07-15", "2025-11-15", []string{"Node.js", "MongoDB"}, 2, models.ProjectPlanning, "mgr2@example.com"},
	{"Project Hermes", "DevOps pipeline and AWS infra setup", "2025-05-01", "2025-08-01", []string{"DevOps", "AWS"}, 2, models.ProjectActive, "mgr1@example.com"},
}

type assignmentSpec struct {
	engineer   string
	project    string
	allocation int
	start, end string
	role       models.AssignmentRole
}

// Alice's two bookings overlap from 2025-06-15 to 2025-09-15 at 150%.
var assignments = []assignmentSpec{
	{"eng1@example.com", "Project Apollo", 50, "2025-06-01", "2025-09-30", models.AssignmentDeveloper},
	{"eng2@example.com", "Project Zeus", 50, "2025-07-15", "2025-11-15", models.AssignmentTechLead},
	{"eng3@example.com", "Project Hermes", 50, "2025-05-01", "2025-08-01", models.AssignmentDevOps},
	{"eng1@example.com", "Project Zeus", 100, "2025-06-15", "2025-09-15", models.AssignmentDeveloper},
	{"eng2@example.com", "Project Apollo", 50, "2025-06-01", "2025-09-30", models.AssignmentDeveloper},
}

// Run inserts the demonstration data set into store.
func Run(ctx context.Context, store storage.Storage, opts Options) (*Result, error) {
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	if err := auth.ValidatePasswordOrError(password); err != nil {
		return nil, fmt.Errorf("seed password: %w", err)
	}

	if opts.Reset {
		if err := reset(ctx, store); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	res := &Result{}
	now := time.Now()

	userIDs := make(map[string]string, len(users))
	for _, spec := range users {
		existing, err := store.Users().GetByEmail(ctx, spec.email)
		if err != nil {
			return nil, fmt.Errorf("check user %s: %w", spec.email, err)
		}
		if existing != nil {
			return nil, fmt.Errorf("user %s already exists (use reset to replace existing data)", spec.email)
		}

		u := models.NewUser(spec.email, spec.name, spec.role)
		u.ID = uuid.New().String()
		u.Department = spec.department
		u.Skills = spec.skills
		u.Seniority = spec.seniority
		u.MaxCapacity = spec.capacity
		u.PasswordHash = hash
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", spec.email, err)
		}
		if err := store.Users().Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user %s: %w", spec.email, err)
		}
		userIDs[spec.email] = u.ID
		res.Users++
	}

	projectIDs := make(map[string]string, len(projects))
	for _, spec := range projects {
		p := models.NewProject(spec.name, spec.description, userIDs[spec.manager])
		p.ID = uuid.New().String()
		p.StartDate = mustDate(spec.start)
		p.EndDate = mustDate(spec.end)
		p.RequiredSkills = spec.skills
		p.TeamSize = spec.teamSize
		p.Status = spec.status
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("seed project %s: %w", spec.name, err)
		}
		if err := store.Projects().Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create project %s: %w", spec.name, err)
		}
		projectIDs[spec.name] = p.ID
		res.Projects++
	}

	for _, spec := range assignments {
		a := &models.Assignment{
			ID:                   uuid.New().String(),
			EngineerID:           userIDs[spec.engineer],
			ProjectID:            projectIDs[spec.project],
			AllocationPercentage: spec.allocation,
			StartDate:            mustDate(spec.start),
			EndDate:              mustDate(spec.end),
			Role:                 spec.role,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := store.Assignments().Create(ctx, a); err != nil {
			return nil, fmt.Errorf("create assignment %s on %s: %w", spec.engineer, spec.project, err)
		}
		res.Assignments++
	}

	log.Printf("seed: inserted %d users, %d projects, %d assignments", res.Users, res.Projects, res.Assignments)
	return res, nil
}

// reset removes assignments first so no row is left pointing at a
// deleted user or project. Refresh tokens go with their user.
func reset(ctx context.Context, store storage.Storage) error {
	existing, err := store.Assignments().List(ctx)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range existing {
		if err := store.Assignments().Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("delete assignment %s: %w", a.ID, err)
		}
	}

	ps, err := store.Projects().List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	for _, p := range ps {
		if err := store.Projects().Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete project %s: %w", p.ID, err)
		}
	}

	us, err := store.Users().List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range us {
		if err := store.Users().Delete(ctx, u.ID); err != nil {
			return fmt.Errorf("delete user %s: %w", u.ID, err)
		}
	}

	log.Printf("seed: cleared %d assignments, %d projects, %d users", len(existing), len(ps), len(us))
	return nil
}

func mustDate(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
