package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Migration represents a schema migration step. {{serial}} in SQL expands to
// the dialect's auto-increment primary key.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	Driver           string          `json:"driver" yaml:"driver"`
	CurrentVersion   int             `json:"current_version" yaml:"current_version"`
	AvailableVersion int             `json:"available_version" yaml:"available_version"`
	Pending          []MigrationInfo `json:"pending" yaml:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: lab and lab_followers",
		SQL: `
CREATE TABLE IF NOT EXISTS lab (
  lab_code {{serial}},
  lab_name TEXT NOT NULL,
  lab_description TEXT NOT NULL DEFAULT '',
  lab_objectives TEXT NOT NULL DEFAULT '',
  lab_proyects TEXT NOT NULL DEFAULT '',
  lab_images TEXT NOT NULL DEFAULT '',
  lab_video TEXT NOT NULL DEFAULT '',
  lab_podcast TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS lab_followers (
  lab_code BIGINT NOT NULL,
  user_code BIGINT NOT NULL,
  created_at TEXT NOT NULL,
  UNIQUE(lab_code, user_code)
);

CREATE INDEX IF NOT EXISTS idx_lab_followers_user ON lab_followers(user_code);
`,
	},
	{
		Version:     2,
		Description: "accounts: dep_user, dep_admin, sessions",
		SQL: `
CREATE TABLE IF NOT EXISTS dep_user (
  user_code {{serial}},
  user_name TEXT NOT NULL,
  user_surname TEXT NOT NULL DEFAULT '',
  user_email TEXT NOT NULL UNIQUE,
  user_password TEXT NOT NULL,
  user_gender TEXT NOT NULL DEFAULT '',
  user_age INTEGER NOT NULL DEFAULT 0,
  user_degree TEXT NOT NULL DEFAULT '',
  user_zipcode TEXT NOT NULL DEFAULT '',
  user_role TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dep_admin (
  admin_code {{serial}},
  admin_name TEXT NOT NULL,
  admin_surname TEXT NOT NULL DEFAULT '',
  admin_email TEXT NOT NULL UNIQUE,
  admin_password TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  principal_role TEXT NOT NULL,
  principal_code BIGINT NOT NULL,
  token_hash TEXT NOT NULL UNIQUE,
  expires_at TEXT NOT NULL,
  revoked_at TEXT,
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_principal ON sessions(principal_role, principal_code);
`,
	},
	{
		Version:     3,
		Description: "attendance ledger",
		SQL: `
CREATE TABLE IF NOT EXISTS attendance (
  attendance_code {{serial}},
  lab_code BIGINT NOT NULL,
  user_code BIGINT NOT NULL,
  attended_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_lab ON attendance(lab_code);
`,
	},
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
)`

// statements expands the dialect placeholders and splits the script into
// single statements, since database/sql drivers differ on multi-statement Exec.
func (m Migration) statements(d dialect) []string {
	script := strings.ReplaceAll(m.SQL, "{{serial}}", d.serialKey())
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist.
func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// runMigrations applies all pending migrations in order, one transaction each.
func runMigrations(db *sql.DB, d dialect) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range m.statements(d) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
			}
		}

		record := d.rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)")
		if _, err := tx.Exec(record, m.Version, dbFormatTime(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// migrationPlan returns the current migration status without applying anything.
func migrationPlan(db *sql.DB, d dialect) (*MigrationStatus, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}

	current, err := currentVersion(db)
	if err != nil {
		return nil, err
	}

	sorted := sortedMigrations()
	available := 0
	if len(sorted) > 0 {
		available = sorted[len(sorted)-1].Version
	}

	var pending []MigrationInfo
	for _, m := range sorted {
		if m.Version > current {
			pending = append(pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}

	return &MigrationStatus{
		Driver:           d.String(),
		CurrentVersion:   current,
		AvailableVersion: available,
		Pending:          pending,
	}, nil
}
