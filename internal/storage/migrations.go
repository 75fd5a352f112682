package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table (engineers and managers)
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL,
				department TEXT NOT NULL,
				role TEXT NOT NULL,
				skills TEXT NOT NULL DEFAULT '[]',
				seniority TEXT NOT NULL DEFAULT '',
				max_capacity INTEGER NOT NULL DEFAULT 0,
				password_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Projects table
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				required_skills TEXT NOT NULL DEFAULT '[]',
				team_size INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'planning',
				manager_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
			CREATE INDEX IF NOT EXISTS idx_projects_manager ON projects(manager_id);
		`,
	},
	{
		Version: 2,
		Name:    "assignments",
		Up: `
			-- References are checked by the capacity engine; deleting a user
			-- or project leaves its assignments in place.
			CREATE TABLE IF NOT EXISTS assignments (
				id TEXT PRIMARY KEY,
				engineer_id TEXT NOT NULL,
				project_id TEXT NOT NULL,
				allocation_percentage INTEGER NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'Developer',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				CHECK (allocation_percentage BETWEEN 0 AND 100),
				CHECK (end_date >= start_date)
			);

			CREATE INDEX IF NOT EXISTS idx_assignments_engineer_dates ON assignments(engineer_id, start_date, end_date);
			CREATE INDEX IF NOT EXISTS idx_assignments_project ON assignments(project_id);
		`,
	},
	{
		Version: 3,
		Name:    "refresh_tokens",
		Up: `
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token_hash TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				revoked INTEGER NOT NULL DEFAULT 0,
				revoked_at DATETIME,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
			CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON refresh_tokens(expires_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database not open")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	return nil
}

// applyMigration runs one migration and records it in a single transaction.
func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
	}

	if _, err := tx.Exec(m.Up); err != nil {
		tx.Rollback()
		return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Name, time.Now(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}
