package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

const projectColumns = `id, name, description, start_date, end_date, required_skills, team_size, status, manager_id, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	project := &models.Project{}
	var start, end, skills string
	err := row.Scan(
		&project.ID, &project.Name, &project.Description, &start, &end,
		&skills, &project.TeamSize, &project.Status, &project.ManagerID,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if project.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	if project.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}
	if project.RequiredSkills, err = decodeStrings(skills); err != nil {
		return nil, fmt.Errorf("decode required_skills: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	skills, err := encodeStrings(models.UniqueStrings(project.RequiredSkills))
	if err != nil {
		return fmt.Errorf("encode required_skills: %w", err)
	}
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description,
		models.FormatDate(project.StartDate), models.FormatDate(project.EndDate),
		skills, project.TeamSize, project.Status, project.ManagerID,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	skills, err := encodeStrings(models.UniqueStrings(project.RequiredSkills))
	if err != nil {
		return fmt.Errorf("encode required_skills: %w", err)
	}
	query := `
		UPDATE projects SET name = ?, description = ?, start_date = ?, end_date = ?,
			required_skills = ?, team_size = ?, status = ?, manager_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Name, project.Description,
		models.FormatDate(project.StartDate), models.FormatDate(project.EndDate),
		skills, project.TeamSize, project.Status, project.ManagerID, project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

func (r *sqliteProjectRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

func (r *sqliteProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY start_date, name`
	return r.query(ctx, "list projects", query)
}

// ListByIDs returns the projects whose id is in ids. Unknown ids are skipped.
func (r *sqliteProjectRepo) ListByIDs(ctx context.Context, ids []string) ([]*models.Project, error) {
	if len(ids) == 0 {
		return []*models.Project{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id IN (` + placeholders + `) ORDER BY start_date, name`
	return r.query(ctx, "list projects by ids", query, args...)
}

func (r *sqliteProjectRepo) query(ctx context.Context, op, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return projects, nil
}
