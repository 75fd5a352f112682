package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/api/health"
	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

const testPassword = "TestPassword123!"

// testServer creates a server backed by a SQLite file in a temp dir.
func testServer(t *testing.T) (*Server, storage.Storage) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "api.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate storage: %v", err)
	}

	cfg := &Config{
		Address:          ":0",
		JWTSecret:        []byte("test-jwt-secret-32-bytes-long!!"),
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  24 * time.Hour,
		RateLimitPerIP:   100,
		RateLimitPerUser: 100,
		LockoutThreshold: 5,
		LockoutDuration:  30 * time.Minute,
		UserCacheTTL:     time.Minute,
	}

	srv, err := New(cfg, staffing.NewService(store))
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	t.Cleanup(func() { srv.stopBackground() })
	srv.RegisterHealthChecker(health.NewDatabaseChecker("sqlite", store))

	return srv, store
}

// createTestUser creates a user in the database for testing.
func createTestUser(t *testing.T, store storage.Storage, name string, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.NewUser(name+"@test.com", name, role)
	user.ID = uuid.New().String()
	user.Department = "Engineering"
	user.PasswordHash = hash
	if role == models.RoleEngineer {
		user.Seniority = models.SeniorityMid
		user.MaxCapacity = models.CapacityFullTime
	}

	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createTestProject(t *testing.T, store storage.Storage, managerID string) *models.Project {
	t.Helper()
	p := models.NewProject("Apollo", "Frontend revamp", managerID)
	p.ID = uuid.New().String()
	p.StartDate, _ = models.ParseDate("2025-01-01")
	p.EndDate, _ = models.ParseDate("2026-12-31")
	p.TeamSize = 3
	p.RequiredSkills = []string{"React"}
	if err := store.Projects().Create(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func login(t *testing.T, srv *Server, email, password string) (*httptest.ResponseRecorder, tokens) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	rec := do(t, srv, http.MethodPost, "/api/v1/auth/login", "", body)

	var resp struct {
		Data tokens `json:"data"`
	}
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode login: %v", err)
		}
	}
	return rec, resp.Data
}

func do(t *testing.T, srv *Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		if rec := do(t, srv, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200: %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/nope", "", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != ErrCodeNotFound {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPatch, "/health", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH /health = %d, want 405", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	srv, store := testServer(t)
	createTestUser(t, store, "alice", models.RoleEngineer)

	rec, tok := login(t, srv, "alice@test.com", testPassword)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.TokenType != "Bearer" {
		t.Errorf("tokens = %+v", tok)
	}

	if rec, _ := login(t, srv, "alice@test.com", "wrong-password"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rec.Code)
	}
	if rec, _ := login(t, srv, "nobody@test.com", testPassword); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user = %d, want 401", rec.Code)
	}
}

func TestProtectedEndpoint_Token(t *testing.T) {
	srv, store := testServer(t)
	createTestUser(t, store, "alice", models.RoleEngineer)

	rec := do(t, srv, http.MethodGet, "/api/v1/auth/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/projects", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", rec.Code)
	}

	_, tok := login(t, srv, "alice@test.com", testPassword)
	rec = do(t, srv, http.MethodGet, "/api/v1/auth/profile", tok.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("profile = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRoleAccess(t *testing.T) {
	srv, store := testServer(t)
	manager := createTestUser(t, store, "mona", models.RoleManager)
	alice := createTestUser(t, store, "alice", models.RoleEngineer)
	bob := createTestUser(t, store, "bob", models.RoleEngineer)
	project := createTestProject(t, store, manager.ID)

	_, mgrTok := login(t, srv, "mona@test.com", testPassword)
	_, engTok := login(t, srv, "alice@test.com", testPassword)

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		want   int
	}{
		{"manager lists engineers", mgrTok.AccessToken, http.MethodGet, "/api/v1/engineers", http.StatusOK},
		{"engineer lists engineers", engTok.AccessToken, http.MethodGet, "/api/v1/engineers", http.StatusForbidden},
		{"engineer reads self", engTok.AccessToken, http.MethodGet, "/api/v1/engineers/" + alice.ID, http.StatusOK},
		{"engineer reads own capacity", engTok.AccessToken, http.MethodGet, "/api/v1/engineers/" + alice.ID + "/capacity", http.StatusOK},
		{"engineer reads other capacity", engTok.AccessToken, http.MethodGet, "/api/v1/engineers/" + bob.ID + "/capacity", http.StatusForbidden},
		{"engineer reads other availability", engTok.AccessToken, http.MethodGet, "/api/v1/engineers/" + bob.ID + "/availability", http.StatusForbidden},
		{"engineer lists projects", engTok.AccessToken, http.MethodGet, "/api/v1/projects", http.StatusOK},
		{"engineer reads project", engTok.AccessToken, http.MethodGet, "/api/v1/projects/" + project.ID, http.StatusOK},
		{"engineer reads skill gap", engTok.AccessToken, http.MethodGet, "/api/v1/projects/" + project.ID + "/skill-gap", http.StatusForbidden},
		{"manager reads skill gap", mgrTok.AccessToken, http.MethodGet, "/api/v1/projects/" + project.ID + "/skill-gap", http.StatusOK},
		{"engineer deletes project", engTok.AccessToken, http.MethodDelete, "/api/v1/projects/" + project.ID, http.StatusForbidden},
		{"engineer lists assignments", engTok.AccessToken, http.MethodGet, "/api/v1/assignments", http.StatusOK},
		{"engineer creates assignment", engTok.AccessToken, http.MethodPost, "/api/v1/assignments", http.StatusForbidden},
		{"engineer lists users", engTok.AccessToken, http.MethodGet, "/api/v1/users", http.StatusForbidden},
		{"manager lists users", mgrTok.AccessToken, http.MethodGet, "/api/v1/users", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, tc.method, tc.path, tc.token, nil)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestAssignmentFlow(t *testing.T) {
	srv, store := testServer(t)
	manager := createTestUser(t, store, "mona", models.RoleManager)
	alice := createTestUser(t, store, "alice", models.RoleEngineer)
	project := createTestProject(t, store, manager.ID)

	_, mgrTok := login(t, srv, "mona@test.com", testPassword)
	_, engTok := login(t, srv, "alice@test.com", testPassword)

	create := func(alloc int, start, end string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]any{
			"engineer_id":           alice.ID,
			"project_id":            project.ID,
			"allocation_percentage": alloc,
			"start_date":            start,
			"end_date":              end,
			"role":                  "Developer",
		})
		return do(t, srv, http.MethodPost, "/api/v1/assignments", mgrTok.AccessToken, body)
	}

	rec := create(60, "2030-06-01", "2030-08-31")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data struct {
			ID       string `json:"id"`
			Engineer struct {
				Name string `json:"name"`
			} `json:"engineer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Data.Engineer.Name != "alice" {
		t.Errorf("embedded engineer = %+v", created.Data.Engineer)
	}

	rec = create(50, "2030-07-01", "2030-07-31")
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "CAPACITY_EXCEEDED" {
		t.Errorf("over capacity = %d: %s", rec.Code, rec.Body.String())
	}

	rec = create(40, "2030-07-01", "2030-07-31")
	if rec.Code != http.StatusCreated {
		t.Errorf("exactly at capacity = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/assignments/"+created.Data.ID, engTok.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner reads assignment = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/assignments/"+created.Data.ID, mgrTok.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	srv, store := testServer(t)
	createTestUser(t, store, "alice", models.RoleEngineer)

	_, tok := login(t, srv, "alice@test.com", testPassword)

	body, _ := json.Marshal(map[string]string{"refresh_token": tok.RefreshToken})
	if rec := do(t, srv, http.MethodPost, "/api/v1/auth/logout", tok.AccessToken, body); rec.Code != http.StatusNoContent {
		t.Errorf("logout = %d, want 204", rec.Code)
	}

	if rec := do(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout = %d, want 401", rec.Code)
	}
}
