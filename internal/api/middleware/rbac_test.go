package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/staffplan/internal/access"
	"github.com/good-yellow-bee/staffplan/internal/models"
)

func setAuthContext(r *http.Request, userID string, role models.Role) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAction(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		role     models.Role
		action   access.Action
		wantCode int
	}{
		{"manager creates project", "m1", models.RoleManager, access.CreateProject, http.StatusOK},
		{"manager lists engineers", "m1", models.RoleManager, access.ListEngineers, http.StatusOK},
		{"engineer lists projects", "e1", models.RoleEngineer, access.ListProjects, http.StatusOK},
		{"engineer creates project", "e1", models.RoleEngineer, access.CreateProject, http.StatusForbidden},
		{"engineer views skill gap", "e1", models.RoleEngineer, access.ViewSkillGap, http.StatusForbidden},
		{"engineer creates assignment", "e1", models.RoleEngineer, access.CreateAssignment, http.StatusForbidden},
		{"unknown role", "x1", "admin", access.ListProjects, http.StatusForbidden},
		{"no principal", "", "", access.ListProjects, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req = setAuthContext(req, tc.userID, tc.role)
			rec := httptest.NewRecorder()

			RequireAction(tc.action)(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}

func TestRequireActionOnSelf(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		role     models.Role
		paramID  string
		wantCode int
	}{
		{"manager any engineer", "m1", models.RoleManager, "e2", http.StatusOK},
		{"engineer self", "e1", models.RoleEngineer, "e1", http.StatusOK},
		{"engineer other", "e1", models.RoleEngineer, "e2", http.StatusForbidden},
		{"engineer no param", "e1", models.RoleEngineer, "", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/engineers/"+tc.paramID+"/capacity", nil)
			req = setAuthContext(req, tc.userID, tc.role)
			req = withURLParam(req, "id", tc.paramID)
			rec := httptest.NewRecorder()

			RequireActionOnSelf(access.ViewCapacity)(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}
