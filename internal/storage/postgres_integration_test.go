package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// setupPostgres starts a PostgreSQL container and returns a migrated store.
func setupPostgres(t *testing.T) *PostgresStorage {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("staffplan_test"),
		postgres.WithUsername("staffplan"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	store := NewPostgresStorage(dsn)
	if err := store.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Second run must be a no-op.
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	return store
}

func TestPostgresStorage_Repositories(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	user := newEngineer("pg@example.com", models.CapacityFullTime, "Go", "SQL")
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := store.Users().GetByEmail(ctx, "pg@example.com")
	if err != nil || got == nil {
		t.Fatalf("get by email: %v, %v", got, err)
	}
	if len(got.Skills) != 2 || got.Role != models.RoleEngineer {
		t.Errorf("unexpected user: %+v", got)
	}
	missing, err := store.Users().GetByID(ctx, "not-a-uuid")
	if err != nil || missing != nil {
		t.Errorf("malformed id = %v, %v; want nil, nil", missing, err)
	}

	project := models.NewProject("Zeus", "Data pipeline", user.ID)
	project.ID = uuid.New().String()
	project.StartDate = day("2025-01-01")
	project.EndDate = day("2025-12-31")
	project.TeamSize = 2
	project.RequiredSkills = []string{"Go", "Go", "Kafka"}
	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	gotProject, err := store.Projects().GetByID(ctx, project.ID)
	if err != nil || gotProject == nil {
		t.Fatalf("get project: %v, %v", gotProject, err)
	}
	if len(gotProject.RequiredSkills) != 2 || models.FormatDate(gotProject.EndDate) != "2025-12-31" {
		t.Errorf("unexpected project: %+v", gotProject)
	}
	projectsByID, err := store.Projects().ListByIDs(ctx, []string{project.ID, uuid.New().String()})
	if err != nil || len(projectsByID) != 1 {
		t.Errorf("list projects by ids = %v, %v", projectsByID, err)
	}

	q1 := newAssignment(user.ID, project.ID, 60, "2025-01-01", "2025-03-31")
	q2 := newAssignment(user.ID, project.ID, 30, "2025-04-01", "2025-06-30")
	for _, a := range []*models.Assignment{q1, q2} {
		if err := store.Assignments().Create(ctx, a); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	iv, _ := models.NewInterval(day("2025-03-31"), day("2025-04-01"))
	overlapping, err := store.Assignments().ListOverlapping(ctx, user.ID, iv, "")
	if err != nil || len(overlapping) != 2 {
		t.Errorf("overlapping = %d, %v; want 2", len(overlapping), err)
	}
	overlapping, err = store.Assignments().ListOverlapping(ctx, user.ID, iv, q1.ID)
	if err != nil || len(overlapping) != 1 {
		t.Errorf("overlapping excluding q1 = %d, %v; want 1", len(overlapping), err)
	}

	byIDs, err := store.Users().ListByIDs(ctx, []string{user.ID})
	if err != nil || len(byIDs) != 1 {
		t.Errorf("list by ids = %v, %v", byIDs, err)
	}

	token, plain, _ := models.NewRefreshToken(user.ID, time.Hour)
	if err := store.Tokens().Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}
	if err := store.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain)); err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	gotToken, err := store.Tokens().GetByTokenHash(ctx, token.TokenHash)
	if err != nil || gotToken == nil || !gotToken.Revoked {
		t.Errorf("token = %+v, %v; want revoked", gotToken, err)
	}
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@h:5432/db":   "pgx5://u:p@h:5432/db",
		"postgresql://u:p@h:5432/db": "pgx5://u:p@h:5432/db",
		"pgx5://u:p@h/db":            "pgx5://u:p@h/db",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
