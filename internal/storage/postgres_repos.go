package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// --- users ---

type pgUserRepo struct {
	db pgDBTX
}

func pgScanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var role, seniority string
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Department, &role,
		&user.Skills, &seniority, &user.MaxCapacity, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	user.Seniority = models.Seniority(seniority)
	if len(user.Skills) == 0 {
		user.Skills = nil
	}
	return user, nil
}

func (r *pgUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.Department, string(user.Role),
		nonNil(user.Skills), string(user.Seniority), user.MaxCapacity, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) get(ctx context.Context, op, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := pgScanUser(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !isUUID(id) {
		//nolint:nilnil
		return nil, nil
	}
	return r.get(ctx, "get user by id", "id = $1", id)
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "get user by email", "email = $1", email)
}

func (r *pgUserRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET email = $1, name = $2, department = $3, skills = $4, seniority = $5,
			max_capacity = $6, password_hash = $7, updated_at = $8
		WHERE id = $9`
	tag, err := r.db.Exec(ctx, query,
		user.Email, user.Name, user.Department, nonNil(user.Skills), string(user.Seniority),
		user.MaxCapacity, user.PasswordHash, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	return nil
}

func (r *pgUserRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

func (r *pgUserRepo) List(ctx context.Context) ([]*models.User, error) {
	return r.query(ctx, "list users", `SELECT `+userColumns+` FROM users ORDER BY name`)
}

func (r *pgUserRepo) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	return r.query(ctx, "list users by role",
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name`, string(role))
}

func (r *pgUserRepo) ListByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.query(ctx, "list users by ids",
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[]) ORDER BY name`, ids)
}

func (r *pgUserRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *pgUserRepo) query(ctx context.Context, op, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := pgScanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// --- projects ---

type pgProjectRepo struct {
	db pgDBTX
}

func pgScanProject(row pgx.Row) (*models.Project, error) {
	p := &models.Project{}
	var status string
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.StartDate, &p.EndDate,
		&p.RequiredSkills, &p.TeamSize, &status, &p.ManagerID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	p.StartDate = models.DateOf(p.StartDate)
	p.EndDate = models.DateOf(p.EndDate)
	return p, nil
}

func (r *pgProjectRepo) Create(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, models.DateOf(p.StartDate), models.DateOf(p.EndDate),
		models.UniqueStrings(p.RequiredSkills), p.TeamSize, string(p.Status), p.ManagerID,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *pgProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	if !isUUID(id) {
		//nolint:nilnil
		return nil, nil
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := pgScanProject(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return p, nil
}

func (r *pgProjectRepo) Update(ctx context.Context, p *models.Project) error {
	query := `
		UPDATE projects SET name = $1, description = $2, start_date = $3, end_date = $4,
			required_skills = $5, team_size = $6, status = $7, manager_id = $8, updated_at = $9
		WHERE id = $10`
	tag, err := r.db.Exec(ctx, query,
		p.Name, p.Description, models.DateOf(p.StartDate), models.DateOf(p.EndDate),
		models.UniqueStrings(p.RequiredSkills), p.TeamSize, string(p.Status), p.ManagerID, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", p.ID)
	}
	return nil
}

func (r *pgProjectRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

func (r *pgProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	return r.query(ctx, "list projects", `SELECT `+projectColumns+` FROM projects ORDER BY start_date, name`)
}

func (r *pgProjectRepo) ListByIDs(ctx context.Context, ids []string) ([]*models.Project, error) {
	if len(ids) == 0 {
		return []*models.Project{}, nil
	}
	return r.query(ctx, "list projects by ids",
		`SELECT `+projectColumns+` FROM projects WHERE id = ANY($1::uuid[]) ORDER BY start_date, name`, ids)
}

func (r *pgProjectRepo) query(ctx context.Context, op, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := pgScanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return projects, nil
}

// --- assignments ---

type pgAssignmentRepo struct {
	db pgDBTX
}

func pgScanAssignment(row pgx.Row) (*models.Assignment, error) {
	a := &models.Assignment{}
	var role string
	err := row.Scan(
		&a.ID, &a.EngineerID, &a.ProjectID, &a.AllocationPercentage,
		&a.StartDate, &a.EndDate, &role, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = models.AssignmentRole(role)
	a.StartDate = models.DateOf(a.StartDate)
	a.EndDate = models.DateOf(a.EndDate)
	return a, nil
}

func (r *pgAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.EngineerID, a.ProjectID, a.AllocationPercentage,
		models.DateOf(a.StartDate), models.DateOf(a.EndDate), string(a.Role),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (r *pgAssignmentRepo) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	if !isUUID(id) {
		//nolint:nilnil
		return nil, nil
	}
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	a, err := pgScanAssignment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment by id: %w", err)
	}
	return a, nil
}

func (r *pgAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	query := `
		UPDATE assignments SET engineer_id = $1, project_id = $2, allocation_percentage = $3,
			start_date = $4, end_date = $5, role = $6, updated_at = $7
		WHERE id = $8`
	tag, err := r.db.Exec(ctx, query,
		a.EngineerID, a.ProjectID, a.AllocationPercentage,
		models.DateOf(a.StartDate), models.DateOf(a.EndDate), string(a.Role), a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment not found: %s", a.ID)
	}
	return nil
}

func (r *pgAssignmentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM assignments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment not found: %s", id)
	}
	return nil
}

func (r *pgAssignmentRepo) List(ctx context.Context) ([]*models.Assignment, error) {
	return r.query(ctx, "list assignments",
		`SELECT `+assignmentColumns+` FROM assignments ORDER BY start_date, created_at`)
}

func (r *pgAssignmentRepo) ListByEngineer(ctx context.Context, engineerID string) ([]*models.Assignment, error) {
	return r.query(ctx, "list assignments by engineer",
		`SELECT `+assignmentColumns+` FROM assignments WHERE engineer_id = $1 ORDER BY start_date, created_at`, engineerID)
}

func (r *pgAssignmentRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Assignment, error) {
	return r.query(ctx, "list assignments by project",
		`SELECT `+assignmentColumns+` FROM assignments WHERE project_id = $1 ORDER BY created_at`, projectID)
}

func (r *pgAssignmentRepo) ListOverlapping(ctx context.Context, engineerID string, iv models.Interval, excludeID string) ([]*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + ` FROM assignments
		WHERE engineer_id = $1 AND start_date <= $2 AND end_date >= $3
			AND ($4 = '' OR id::text <> $4)
		ORDER BY start_date`
	return r.query(ctx, "list overlapping assignments", query,
		engineerID, models.DateOf(iv.End), models.DateOf(iv.Start), excludeID)
}

func (r *pgAssignmentRepo) query(ctx context.Context, op, query string, args ...any) ([]*models.Assignment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	assignments := []*models.Assignment{}
	for rows.Next() {
		a, err := pgScanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return assignments, nil
}

// --- refresh tokens ---

type pgTokenRepo struct {
	db pgDBTX
}

func (r *pgTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt, token.Revoked,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *pgTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked, revoked_at
		FROM refresh_tokens WHERE token_hash = $1`
	var token models.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.ExpiresAt, &token.CreatedAt, &token.Revoked, &token.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	return &token, nil
}

func (r *pgTokenRepo) Revoke(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE id = $2", time.Now(), id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token not found")
	}
	return nil
}

func (r *pgTokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE token_hash = $2", time.Now(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke token by hash: %w", err)
	}
	return nil
}

func (r *pgTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE user_id = $2 AND NOT revoked", time.Now(), userID)
	if err != nil {
		return fmt.Errorf("revoke all tokens for user: %w", err)
	}
	return nil
}

func (r *pgTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM refresh_tokens WHERE expires_at < $1", time.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// isUUID reports whether s parses as a UUID. Lookups by malformed ids
// would otherwise fail the uuid cast instead of missing.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
