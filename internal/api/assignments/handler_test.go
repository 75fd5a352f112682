package assignments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/api/middleware"
	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

type fixture struct {
	h       *Handler
	store   storage.Storage
	manager *models.User
	alice   *models.User
	bob     *models.User
	apollo  *models.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "assignments.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{store: store}
	f.manager = addUser(t, store, "Mona", models.RoleManager, 0)
	f.alice = addUser(t, store, "Alice", models.RoleEngineer, 100)
	f.bob = addUser(t, store, "Bob", models.RoleEngineer, 50)

	f.apollo = models.NewProject("Apollo", "Frontend revamp", f.manager.ID)
	f.apollo.ID = uuid.New().String()
	f.apollo.StartDate, _ = models.ParseDate("2025-01-01")
	f.apollo.EndDate, _ = models.ParseDate("2025-12-31")
	f.apollo.TeamSize = 3
	if err := store.Projects().Create(context.Background(), f.apollo); err != nil {
		t.Fatalf("create project: %v", err)
	}

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.h = NewHandler(staffing.NewService(store, staffing.WithClock(func() time.Time { return now })))
	return f
}

func addUser(t *testing.T, store storage.Storage, name string, role models.Role, capacity int) *models.User {
	t.Helper()
	u := models.NewUser(uuid.New().String()+"@example.com", name, role)
	u.ID = uuid.New().String()
	u.Department = "Engineering"
	u.PasswordHash = "hash"
	if role == models.RoleEngineer {
		u.Seniority = models.SeniorityMid
		u.MaxCapacity = capacity
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) request(t *testing.T, as *models.User, method, id string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, "/assignments/"+id, &buf)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithUser(ctx, as))
}

func (f *fixture) create(t *testing.T, engineer *models.User, alloc int, start, end string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.h.Create(rec, f.request(t, f.manager, http.MethodPost, "", CreateRequest{
		EngineerID:           engineer.ID,
		ProjectID:            f.apollo.ID,
		AllocationPercentage: &alloc,
		StartDate:            start,
		EndDate:              end,
		Role:                 "Tech Lead",
	}))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	wrapper := struct {
		Data any `json:"data"`
	}{Data: v}
	if err := json.NewDecoder(rec.Body).Decode(&wrapper); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Error
}

func TestCreate_EmbedsReferences(t *testing.T) {
	f := setup(t)

	rec := f.create(t, f.alice, 60, "2025-06-01", "2025-08-31")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got AssignmentResponse
	decodeData(t, rec, &got)
	if got.Engineer == nil || got.Engineer.Name != "Alice" || got.Engineer.Email != f.alice.Email {
		t.Errorf("engineer = %+v", got.Engineer)
	}
	if got.Project == nil || got.Project.Name != "Apollo" {
		t.Errorf("project = %+v", got.Project)
	}
	if got.StartDate != "2025-06-01" || got.EndDate != "2025-08-31" || got.Role != "Tech Lead" {
		t.Errorf("assignment = %+v", got)
	}
}

func TestCreate_CapacityExceeded(t *testing.T) {
	f := setup(t)

	if rec := f.create(t, f.alice, 60, "2025-06-01", "2025-08-31"); rec.Code != http.StatusCreated {
		t.Fatalf("first create = %d", rec.Code)
	}

	rec := f.create(t, f.alice, 50, "2025-07-01", "2025-07-31")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != "CAPACITY_EXCEEDED" {
		t.Errorf("code = %q", body.Code)
	}
	if body.Message != "allocation (50%) + existing (60%) exceeds engineer's max capacity (100%)" {
		t.Errorf("message = %q", body.Message)
	}
	if body.Details == nil || body.Details.Attempted != 50 || body.Details.Existing != 60 || body.Details.MaxCapacity != 100 {
		t.Errorf("details = %+v", body.Details)
	}
}

func TestCreate_ErrorMapping(t *testing.T) {
	f := setup(t)
	fifty := 50
	over := 101

	tests := []struct {
		name     string
		req      CreateRequest
		wantCode int
		wantErr  string
	}{
		{"malformed engineer", CreateRequest{EngineerID: "x", ProjectID: f.apollo.ID, AllocationPercentage: &fifty}, http.StatusBadRequest, "INVALID_REFERENCE"},
		{"missing dates", CreateRequest{EngineerID: f.alice.ID, ProjectID: f.apollo.ID, AllocationPercentage: &fifty}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad date", CreateRequest{EngineerID: f.alice.ID, ProjectID: f.apollo.ID, AllocationPercentage: &fifty, StartDate: "June", EndDate: "2025-06-30"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"allocation over 100", CreateRequest{EngineerID: f.alice.ID, ProjectID: f.apollo.ID, AllocationPercentage: &over, StartDate: "2025-06-01", EndDate: "2025-06-30"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing allocation", CreateRequest{EngineerID: f.alice.ID, ProjectID: f.apollo.ID, StartDate: "2025-06-01", EndDate: "2025-06-30"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown engineer", CreateRequest{EngineerID: uuid.New().String(), ProjectID: f.apollo.ID, AllocationPercentage: &fifty, StartDate: "2025-06-01", EndDate: "2025-06-30"}, http.StatusNotFound, "NOT_FOUND"},
		{"manager as engineer", CreateRequest{EngineerID: f.manager.ID, ProjectID: f.apollo.ID, AllocationPercentage: &fifty, StartDate: "2025-06-01", EndDate: "2025-06-30"}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown project", CreateRequest{EngineerID: f.alice.ID, ProjectID: uuid.New().String(), AllocationPercentage: &fifty, StartDate: "2025-06-01", EndDate: "2025-06-30"}, http.StatusNotFound, "NOT_FOUND"},
		{"part-timer over capacity", CreateRequest{EngineerID: f.bob.ID, ProjectID: f.apollo.ID, AllocationPercentage: &over, StartDate: "2025-06-01", EndDate: "2025-06-30"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.h.Create(rec, f.request(t, f.manager, http.MethodPost, "", tc.req))
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantCode, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Code != tc.wantErr {
				t.Errorf("code = %q, want %q", body.Code, tc.wantErr)
			}
		})
	}

	sixty := 60
	rec := httptest.NewRecorder()
	f.h.Create(rec, f.request(t, f.manager, http.MethodPost, "", CreateRequest{
		EngineerID: f.bob.ID, ProjectID: f.apollo.ID, AllocationPercentage: &sixty,
		StartDate: "2025-06-01", EndDate: "2025-06-30",
	}))
	if rec.Code != http.StatusConflict {
		t.Errorf("60%% on a 50%% engineer = %d, want 409", rec.Code)
	}
}

func TestList_ScopedByRole(t *testing.T) {
	f := setup(t)
	f.create(t, f.alice, 50, "2025-06-01", "2025-06-30")
	f.create(t, f.bob, 25, "2025-06-01", "2025-06-30")

	tests := []struct {
		name  string
		as    *models.User
		query string
		want  int
	}{
		{"manager sees all", f.manager, "", 2},
		{"manager filters by engineer", f.manager, "engineer_id=" + f.alice.ID, 1},
		{"manager filters by project", f.manager, "project_id=" + f.apollo.ID, 2},
		{"manager filters by both", f.manager, "engineer_id=" + f.bob.ID + "&project_id=" + uuid.New().String(), 0},
		{"engineer sees own", f.alice, "", 1},
		{"engineer filter ignored", f.alice, "engineer_id=" + f.bob.ID, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request(t, tc.as, http.MethodGet, "", nil)
			req.URL.RawQuery = tc.query
			rec := httptest.NewRecorder()
			f.h.List(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got []AssignmentResponse
			decodeData(t, rec, &got)
			if len(got) != tc.want {
				t.Errorf("got %d assignments, want %d", len(got), tc.want)
			}
			if tc.as == f.alice {
				for _, a := range got {
					if a.EngineerID != f.alice.ID {
						t.Errorf("engineer saw assignment of %s", a.EngineerID)
					}
				}
			}
		})
	}
}

func TestGetByID_OwnerOrManager(t *testing.T) {
	f := setup(t)
	var created AssignmentResponse
	decodeData(t, f.create(t, f.alice, 50, "2025-06-01", "2025-06-30"), &created)

	tests := []struct {
		name     string
		as       *models.User
		id       string
		wantCode int
	}{
		{"manager", f.manager, created.ID, http.StatusOK},
		{"owner", f.alice, created.ID, http.StatusOK},
		{"other engineer", f.bob, created.ID, http.StatusForbidden},
		{"unknown", f.manager, uuid.New().String(), http.StatusNotFound},
		{"malformed", f.manager, "nope", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.h.GetByID(rec, f.request(t, tc.as, http.MethodGet, tc.id, nil))
			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	var created AssignmentResponse
	decodeData(t, f.create(t, f.alice, 60, "2025-06-01", "2025-08-31"), &created)

	// Raising its own allocation does not count the old value against itself.
	alloc := 100
	rec := httptest.NewRecorder()
	f.h.Update(rec, f.request(t, f.manager, http.MethodPut, created.ID, UpdateRequest{AllocationPercentage: &alloc}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got AssignmentResponse
	decodeData(t, rec, &got)
	if got.AllocationPercentage != 100 || got.Engineer == nil {
		t.Errorf("updated = %+v", got)
	}

	end := "2025-05-01"
	rec = httptest.NewRecorder()
	f.h.Update(rec, f.request(t, f.manager, http.MethodPut, created.ID, UpdateRequest{EndDate: &end}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("end before start = %d, want 400", rec.Code)
	}

	empty := ""
	rec = httptest.NewRecorder()
	f.h.Update(rec, f.request(t, f.manager, http.MethodPut, created.ID, UpdateRequest{StartDate: &empty}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty start = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.h.Update(rec, f.request(t, f.manager, http.MethodPut, uuid.New().String(), UpdateRequest{AllocationPercentage: &alloc}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown = %d, want 404", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	f := setup(t)
	var created AssignmentResponse
	decodeData(t, f.create(t, f.alice, 60, "2025-06-01", "2025-08-31"), &created)

	rec := httptest.NewRecorder()
	f.h.Delete(rec, f.request(t, f.manager, http.MethodDelete, created.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.h.Delete(rec, f.request(t, f.manager, http.MethodDelete, created.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestCreate_ReferenceFormatReportedFirst(t *testing.T) {
	f := setup(t)

	rec := httptest.NewRecorder()
	f.h.Create(rec, f.request(t, f.manager, http.MethodPost, "", CreateRequest{
		EngineerID: "xx",
		ProjectID:  f.apollo.ID,
		StartDate:  "nope",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "INVALID_REFERENCE" {
		t.Errorf("code = %q, want INVALID_REFERENCE", body.Code)
	}

	rec = httptest.NewRecorder()
	f.h.Create(rec, f.request(t, f.manager, http.MethodPost, "", CreateRequest{
		EngineerID: f.alice.ID,
		ProjectID:  f.apollo.ID,
		StartDate:  "nope",
		EndDate:    "2025-06-30",
	}))
	body := decodeError(t, rec)
	if rec.Code != http.StatusBadRequest || body.Code != "VALIDATION_ERROR" {
		t.Fatalf("status = %d, code = %q", rec.Code, body.Code)
	}
	if body.Message != "allocation_percentage is required" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestUpdate_ValidationOrder(t *testing.T) {
	f := setup(t)
	var created AssignmentResponse
	decodeData(t, f.create(t, f.alice, 60, "2025-06-01", "2025-08-31"), &created)

	badDate := "not-a-date"
	garbage := "garbage"
	earlyEnd := "2025-05-01"

	tests := []struct {
		name     string
		id       string
		req      UpdateRequest
		wantCode int
		wantErr  string
	}{
		{"missing assignment before bad date", uuid.New().String(), UpdateRequest{StartDate: &badDate}, http.StatusNotFound, "NOT_FOUND"},
		{"bad date on existing assignment", created.ID, UpdateRequest{StartDate: &badDate}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"end before start before engineer id", created.ID, UpdateRequest{EngineerID: &garbage, EndDate: &earlyEnd}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed engineer id", created.ID, UpdateRequest{EngineerID: &garbage}, http.StatusBadRequest, "INVALID_REFERENCE"},
		{"malformed project id", created.ID, UpdateRequest{ProjectID: &garbage}, http.StatusBadRequest, "INVALID_REFERENCE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.h.Update(rec, f.request(t, f.manager, http.MethodPut, tc.id, tc.req))
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantCode, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Code != tc.wantErr {
				t.Errorf("code = %q, want %q", body.Code, tc.wantErr)
			}
		})
	}
}

func TestList_RejectsMalformedFilters(t *testing.T) {
	f := setup(t)

	for _, query := range []string{"engineer_id=foo", "project_id=foo", "engineer_id=" + f.alice.ID + "&project_id=foo"} {
		t.Run(query, func(t *testing.T) {
			req := f.request(t, f.manager, http.MethodGet, "", nil)
			req.URL.RawQuery = query
			rec := httptest.NewRecorder()
			f.h.List(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if body := decodeError(t, rec); body.Code != "INVALID_REFERENCE" {
				t.Errorf("code = %q, want INVALID_REFERENCE", body.Code)
			}
		})
	}
}

func TestList_EmbedsEachProject(t *testing.T) {
	f := setup(t)

	hermes := models.NewProject("Hermes", "Delivery tracking", f.manager.ID)
	hermes.ID = uuid.New().String()
	hermes.StartDate, _ = models.ParseDate("2025-01-01")
	hermes.EndDate, _ = models.ParseDate("2025-12-31")
	hermes.TeamSize = 2
	if err := f.store.Projects().Create(context.Background(), hermes); err != nil {
		t.Fatalf("create project: %v", err)
	}

	f.create(t, f.alice, 50, "2025-06-01", "2025-06-30")
	alloc := 25
	rec := httptest.NewRecorder()
	f.h.Create(rec, f.request(t, f.manager, http.MethodPost, "", CreateRequest{
		EngineerID: f.bob.ID, ProjectID: hermes.ID, AllocationPercentage: &alloc,
		StartDate: "2025-06-01", EndDate: "2025-06-30",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	f.h.List(rec, f.request(t, f.manager, http.MethodGet, "", nil))
	var got []AssignmentResponse
	decodeData(t, rec, &got)
	if len(got) != 2 {
		t.Fatalf("got %d assignments, want 2", len(got))
	}
	for _, a := range got {
		if a.Project == nil || a.Project.ID != a.ProjectID {
			t.Errorf("assignment %s project = %+v", a.ID, a.Project)
		}
	}
}
