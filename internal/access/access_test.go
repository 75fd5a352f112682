package access

import (
	"testing"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

func TestAllowed(t *testing.T) {
	manager := Principal{UserID: "m1", Role: models.RoleManager}
	engineer := Principal{UserID: "e1", Role: models.RoleEngineer}

	tests := []struct {
		name   string
		p      Principal
		action Action
		owner  string
		want   bool
	}{
		{"manager creates assignment", manager, CreateAssignment, "", true},
		{"manager views other capacity", manager, ViewCapacity, "e1", true},
		{"manager lists engineers", manager, ListEngineers, "", true},
		{"manager unknown action", manager, Action(999), "", false},

		{"engineer lists projects", engineer, ListProjects, "", true},
		{"engineer views project", engineer, ViewProject, "", true},
		{"engineer own capacity", engineer, ViewCapacity, "e1", true},
		{"engineer other capacity", engineer, ViewCapacity, "e2", false},
		{"engineer own availability", engineer, ViewAvailability, "e1", true},
		{"engineer other availability", engineer, ViewAvailability, "e2", false},
		{"engineer owner missing", engineer, ViewAssignment, "", false},
		{"engineer own assignment", engineer, ViewAssignment, "e1", true},
		{"engineer lists own assignments", engineer, ListOwnAssignments, "", true},
		{"engineer lists all assignments", engineer, ListAllAssignments, "", false},
		{"engineer creates assignment", engineer, CreateAssignment, "e1", false},
		{"engineer updates project", engineer, UpdateProject, "", false},
		{"engineer skill gap", engineer, ViewSkillGap, "", false},
		{"engineer lists engineers", engineer, ListEngineers, "", false},

		{"unknown role", Principal{UserID: "x", Role: "admin"}, ListProjects, "", false},
		{"anonymous", Principal{Role: models.RoleManager}, ListProjects, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.p, tc.action, tc.owner); got != tc.want {
				t.Errorf("Allowed(%s) = %v, want %v", tc.action, got, tc.want)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	if ViewSkillGap.String() != "view skill gap" {
		t.Errorf("String() = %q", ViewSkillGap.String())
	}
	if Action(-1).String() != "action(-1)" {
		t.Errorf("String() = %q", Action(-1).String())
	}
	if !OwnerScoped(ViewAvailability) || OwnerScoped(CreateProject) {
		t.Error("OwnerScoped mismatch")
	}
}
