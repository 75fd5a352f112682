package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

type sqliteAssignmentRepo struct {
	db *sql.DB
}

const assignmentColumns = `id, engineer_id, project_id, allocation_percentage, start_date, end_date, role, created_at, updated_at`

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	a := &models.Assignment{}
	var start, end string
	err := row.Scan(
		&a.ID, &a.EngineerID, &a.ProjectID, &a.AllocationPercentage,
		&start, &end, &a.Role, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	if a.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}
	return a, nil
}

func (r *sqliteAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.EngineerID, a.ProjectID, a.AllocationPercentage,
		models.FormatDate(a.StartDate), models.FormatDate(a.EndDate), a.Role,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (r *sqliteAssignmentRepo) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = ?`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment by id: %w", err)
	}
	return a, nil
}

func (r *sqliteAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	query := `
		UPDATE assignments SET engineer_id = ?, project_id = ?, allocation_percentage = ?,
			start_date = ?, end_date = ?, role = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		a.EngineerID, a.ProjectID, a.AllocationPercentage,
		models.FormatDate(a.StartDate), models.FormatDate(a.EndDate), a.Role, a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("assignment not found: %s", a.ID)
	}
	return nil
}

func (r *sqliteAssignmentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("assignment not found: %s", id)
	}
	return nil
}

func (r *sqliteAssignmentRepo) List(ctx context.Context) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments ORDER BY start_date, created_at`
	return r.query(ctx, "list assignments", query)
}

func (r *sqliteAssignmentRepo) ListByEngineer(ctx context.Context, engineerID string) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE engineer_id = ? ORDER BY start_date, created_at`
	return r.query(ctx, "list assignments by engineer", query, engineerID)
}

func (r *sqliteAssignmentRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE project_id = ? ORDER BY created_at`
	return r.query(ctx, "list assignments by project", query, projectID)
}

// Dates are stored as YYYY-MM-DD so lexical comparison is chronological.
func (r *sqliteAssignmentRepo) ListOverlapping(ctx context.Context, engineerID string, iv models.Interval, excludeID string) ([]*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + ` FROM assignments
		WHERE engineer_id = ? AND start_date <= ? AND end_date >= ? AND id != ?
		ORDER BY start_date
	`
	return r.query(ctx, "list overlapping assignments", query,
		engineerID, models.FormatDate(iv.End), models.FormatDate(iv.Start), excludeID,
	)
}

func (r *sqliteAssignmentRepo) query(ctx context.Context, op, query string, args ...any) ([]*models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	assignments := []*models.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
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
