package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed postgres_migrations/*.sql
var postgresMigrationsFS embed.FS

// pgDBTX is implemented by both *pgxpool.Pool and pgx.Tx.
type pgDBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage implements Storage using a pgx connection pool.
type PostgresStorage struct {
	dsn  string
	pool *pgxpool.Pool

	users       *pgUserRepo
	projects    *pgProjectRepo
	assignments *pgAssignmentRepo
	tokens      *pgTokenRepo
}

// NewPostgresStorage creates a new PostgreSQL storage for a
// postgres:// connection string.
func NewPostgresStorage(dsn string) *PostgresStorage {
	return &PostgresStorage{dsn: dsn}
}

// Open creates the connection pool and checks connectivity.
func (s *PostgresStorage) Open() error {
	ctx := context.Background()

	poolCfg, err := pgxpool.ParseConfig(s.dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	s.pool = pool
	s.users = &pgUserRepo{db: pool}
	s.projects = &pgProjectRepo{db: pool}
	s.assignments = &pgAssignmentRepo{db: pool}
	s.tokens = &pgTokenRepo{db: pool}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStorage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("database not open")
	}
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded migrations with golang-migrate.
func (s *PostgresStorage) Migrate() error {
	source, err := iofs.New(postgresMigrationsFS, "postgres_migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(s.dsn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// EnsureManagerUser creates a default manager if no users exist.
func (s *PostgresStorage) EnsureManagerUser() error {
	return ensureManagerUser(context.Background(), s.Users())
}

// Users returns the user repository.
func (s *PostgresStorage) Users() UserRepository {
	return s.users
}

// Projects returns the project repository.
func (s *PostgresStorage) Projects() ProjectRepository {
	return s.projects
}

// Assignments returns the assignment repository.
func (s *PostgresStorage) Assignments() AssignmentRepository {
	return s.assignments
}

// Tokens returns the token repository.
func (s *PostgresStorage) Tokens() TokenRepository {
	return s.tokens
}

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme golang-migrate
// registers for the pgx v5 driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
