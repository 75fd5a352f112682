// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureManagerUser creates a bootstrap manager if no users exist.
	EnsureManagerUser() error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Assignments() AssignmentRepository
	Tokens() TokenRepository
}

// UserRepository defines operations for engineers and managers.
// Reads return nil, nil when the user does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for project management.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Project, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Project, error)
}

// AssignmentRepository defines operations for staffing assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Assignment, error)
	ListByEngineer(ctx context.Context, engineerID string) ([]*models.Assignment, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Assignment, error)
	// ListOverlapping returns the engineer's assignments whose interval
	// intersects iv (start <= iv.End AND end >= iv.Start). excludeID, when
	// non-empty, is left out of the result.
	ListOverlapping(ctx context.Context, engineerID string, iv models.Interval, excludeID string) ([]*models.Assignment, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
