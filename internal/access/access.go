// Package access decides which actions a user may perform. Every decision
// switches over the closed role set; unknown roles are denied.
package access

import (
	"fmt"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   models.Role
}

// Action is an operation guarded by the policy.
type Action int

const (
	ListProjects Action = iota
	ViewProject
	CreateProject
	UpdateProject
	DeleteProject
	ViewSkillGap
	ListEngineers
	ViewEngineer
	ViewCapacity
	ViewAvailability
	ListAllAssignments
	ListOwnAssignments
	ViewAssignment
	CreateAssignment
	UpdateAssignment
	DeleteAssignment
	ViewProfile
	ManageUsers
)

var actionNames = map[Action]string{
	ListProjects:       "list projects",
	ViewProject:        "view project",
	CreateProject:      "create project",
	UpdateProject:      "update project",
	DeleteProject:      "delete project",
	ViewSkillGap:       "view skill gap",
	ListEngineers:      "list engineers",
	ViewEngineer:       "view engineer",
	ViewCapacity:       "view capacity",
	ViewAvailability:   "view availability",
	ListAllAssignments: "list all assignments",
	ListOwnAssignments: "list own assignments",
	ViewAssignment:     "view assignment",
	CreateAssignment:   "create assignment",
	UpdateAssignment:   "update assignment",
	DeleteAssignment:   "delete assignment",
	ViewProfile:        "view profile",
	ManageUsers:        "manage users",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Allowed reports whether p may perform action on a resource owned by
// ownerID. ownerID is the engineer the resource belongs to and is ignored by
// actions that are not owner-scoped.
func Allowed(p Principal, action Action, ownerID string) bool {
	if p.UserID == "" {
		return false
	}
	switch p.Role {
	case models.RoleManager:
		_, known := actionNames[action]
		return known
	case models.RoleEngineer:
		return engineerAllowed(p, action, ownerID)
	default:
		return false
	}
}

func engineerAllowed(p Principal, action Action, ownerID string) bool {
	switch action {
	case ListProjects, ViewProject, ListOwnAssignments, ViewProfile:
		return true
	case ViewEngineer, ViewCapacity, ViewAvailability, ViewAssignment:
		return ownerID != "" && ownerID == p.UserID
	case CreateProject, UpdateProject, DeleteProject, ViewSkillGap,
		ListEngineers, ListAllAssignments,
		CreateAssignment, UpdateAssignment, DeleteAssignment, ManageUsers:
		return false
	default:
		return false
	}
}

// OwnerScoped reports whether action needs an owner id to be decided for
// engineers.
func OwnerScoped(action Action) bool {
	switch action {
	case ViewEngineer, ViewCapacity, ViewAvailability, ViewAssignment:
		return true
	default:
		return false
	}
}
