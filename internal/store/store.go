package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS = 5000

	maxOpenConnsEnvKey    = "LABHUB_DB_MAX_OPEN_CONNS"
	maxIdleConnsEnvKey    = "LABHUB_DB_MAX_IDLE_CONNS"
	connMaxLifetimeEnvKey = "LABHUB_DB_CONN_MAX_LIFETIME"

	sqliteMaxOpenConns   = 1
	sqliteMaxIdleConns   = 1
	postgresMaxOpenConns = 10
	postgresMaxIdleConns = 5
	connMaxLifetime      = 5 * time.Minute
)

// Driver names accepted by OpenDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store wraps the lab database.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open opens the SQLite database and bootstraps the schema.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return open(db, dialectSQLite)
}

// OpenPostgres connects through pgx's database/sql driver and bootstraps the schema.
func OpenPostgres(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return open(db, dialectPostgres)
}

// OpenDriver selects the backend by name. target is a file path for sqlite and a DSN for postgres.
func OpenDriver(driver, target string) (*Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return Open(target)
	case DriverPostgres, "pgx":
		return OpenPostgres(target)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
}

func open(db *sql.DB, d dialect) (*Store, error) {
	if err := configureDB(db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MigrationPlan reports applied and pending schema versions for this store.
func (s *Store) MigrationPlan() (*MigrationStatus, error) {
	return migrationPlan(s.db, s.dialect)
}

// q rewrites ? placeholders for the active dialect.
func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

func configureDB(db *sql.DB, d dialect) error {
	openConns, idleConns := postgresMaxOpenConns, postgresMaxIdleConns
	if d == dialectSQLite {
		pragmas := []string{
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
			"PRAGMA foreign_keys = ON;",
			fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
		}
		for _, stmt := range pragmas {
			if _, err := db.Exec(stmt); err != nil {
				return err
			}
		}
		openConns, idleConns = sqliteMaxOpenConns, sqliteMaxIdleConns
	} else if err := db.Ping(); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, openConns))
	db.SetMaxIdleConns(intFromEnv(maxIdleConnsEnvKey, idleConns))
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, connMaxLifetime))

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}

func intFromEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// durationFromEnv accepts Go durations and bare seconds.
func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// InspectMigrations opens the database without migrating and reports the plan.
func InspectMigrations(driver, target string) (*MigrationStatus, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		dsn, dsnErr := sqliteDSN(target)
		if dsnErr != nil {
			return nil, dsnErr
		}
		db, err = sql.Open("sqlite", dsn)
		d = dialectSQLite
	case DriverPostgres, "pgx":
		db, err = sql.Open("pgx", target)
		d = dialectPostgres
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return migrationPlan(db, d)
}
