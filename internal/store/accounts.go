package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"labhub/internal/models"
)

// ErrDuplicateEmail is returned when an account email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

const pgUniqueViolation = "23505"

const userColumns = `user_code, user_name, user_surname, user_email, user_password, user_gender, user_age, user_degree, user_zipcode, user_role, created_at, updated_at`

const adminColumns = `admin_code, admin_name, admin_surname, admin_email, admin_password, created_at, updated_at`

// CreateUser inserts a student account and returns it with its generated code.
func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	email := normalizeEmail(user.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(user.PasswordHash) == "" {
		return nil, fmt.Errorf("password hash is required")
	}
	role := user.Role
	if role == "" {
		role = models.RoleStudent
	}

	row := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO dep_user (user_name, user_surname, user_email, user_password, user_gender, user_age, user_degree, user_zipcode, user_role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns),
		user.Name, user.Surname, email, user.PasswordHash, user.Gender, user.Age, user.Degree, user.Zipcode,
		string(role), dbFormatTime(user.CreatedAt), dbFormatTime(user.UpdatedAt))
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return created, nil
}

// GetUserByEmail returns a student by normalized email, or nil.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM dep_user WHERE user_email = ? LIMIT 1`), email)
	return scanUser(row)
}

// GetUserByCode returns a student by code, or nil.
func (s *Store) GetUserByCode(ctx context.Context, code int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM dep_user WHERE user_code = ? LIMIT 1`), code)
	return scanUser(row)
}

// UpdateUser overwrites a student's profile fields, including the password
// hash as given. It returns nil when no row matched.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	row := s.db.QueryRowContext(ctx, s.q(`
		UPDATE dep_user
		SET user_name = ?, user_surname = ?, user_email = ?, user_password = ?, user_gender = ?,
		    user_age = ?, user_degree = ?, user_zipcode = ?, updated_at = ?
		WHERE user_code = ?
		RETURNING `+userColumns),
		user.Name, user.Surname, normalizeEmail(user.Email), user.PasswordHash, user.Gender,
		user.Age, user.Degree, user.Zipcode, dbFormatTime(user.UpdatedAt), user.Code)
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return updated, nil
}

// CreateAdmin inserts an admin account.
func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	if admin == nil {
		return nil, fmt.Errorf("admin is required")
	}
	email := normalizeEmail(admin.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(admin.PasswordHash) == "" {
		return nil, fmt.Errorf("password hash is required")
	}

	row := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO dep_admin (admin_name, admin_surname, admin_email, admin_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+adminColumns),
		admin.Name, admin.Surname, email, admin.PasswordHash, dbFormatTime(admin.CreatedAt), dbFormatTime(admin.UpdatedAt))
	created, err := scanAdmin(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return created, nil
}

// GetAdminByEmail returns an admin by normalized email, or nil.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+adminColumns+` FROM dep_admin WHERE admin_email = ? LIMIT 1`), email)
	return scanAdmin(row)
}

// GetAdminByCode returns an admin by code, or nil.
func (s *Store) GetAdminByCode(ctx context.Context, code int64) (*models.Admin, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+adminColumns+` FROM dep_admin WHERE admin_code = ? LIMIT 1`), code)
	return scanAdmin(row)
}

// ListAdmins returns all admins ordered by code.
func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM dep_admin ORDER BY admin_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := make([]models.Admin, 0)
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		if admin != nil {
			admins = append(admins, *admin)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return admins, nil
}

// UpdateAdmin overwrites an admin's fields. It returns nil when no row matched.
func (s *Store) UpdateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	if admin == nil {
		return nil, fmt.Errorf("admin is required")
	}
	row := s.db.QueryRowContext(ctx, s.q(`
		UPDATE dep_admin
		SET admin_name = ?, admin_surname = ?, admin_email = ?, admin_password = ?, updated_at = ?
		WHERE admin_code = ?
		RETURNING `+adminColumns),
		admin.Name, admin.Surname, normalizeEmail(admin.Email), admin.PasswordHash, dbFormatTime(admin.UpdatedAt), admin.Code)
	updated, err := scanAdmin(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return updated, nil
}

// CountAdmins returns the number of admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dep_admin").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(scanner rowScanner) (*models.User, error) {
	var user models.User
	var role, createdAt, updatedAt string
	err := scanner.Scan(&user.Code, &user.Name, &user.Surname, &user.Email, &user.PasswordHash, &user.Gender,
		&user.Age, &user.Degree, &user.Zipcode, &role, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.Role = models.Role(role)
	if user.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanAdmin(scanner rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var createdAt, updatedAt string
	err := scanner.Scan(&admin.Code, &admin.Name, &admin.Surname, &admin.Email, &admin.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if admin.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if admin.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &admin, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func randomHex(numBytes int) (string, error) {
	if numBytes <= 0 {
		return "", fmt.Errorf("numBytes must be > 0")
	}
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func generateSessionID() (string, error) {
	id, err := randomHex(10)
	if err != nil {
		return "", err
	}
	return "ss-" + id, nil
}

// SessionPrincipal identifies who owns a session.
type SessionPrincipal struct {
	Role  models.Role
	Code  int64
	Email string
}

// CreateSession stores a bearer token hash bound to one principal.
func (s *Store) CreateSession(ctx context.Context, principal SessionPrincipal, tokenHash string, expiresAt, createdAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}
	if principal.Code <= 0 || principal.Role == "" {
		return fmt.Errorf("session principal is required")
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO sessions (id, principal_role, principal_code, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)
	`), sessionID, string(principal.Role), principal.Code, tokenHash, dbFormatTime(expiresAt), dbFormatTime(createdAt))
	return err
}

// GetSessionPrincipal resolves an active, non-revoked token hash to its owner.
// Sessions whose account no longer exists resolve to nil.
func (s *Store) GetSessionPrincipal(ctx context.Context, tokenHash string, now time.Time) (*SessionPrincipal, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}

	var role string
	var code int64
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT principal_role, principal_code
		FROM sessions
		WHERE token_hash = ?
		  AND revoked_at IS NULL
		  AND expires_at > ?
		LIMIT 1
	`), tokenHash, dbFormatTime(now)).Scan(&role, &code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	principal := &SessionPrincipal{Role: models.Role(role), Code: code}
	switch principal.Role {
	case models.RoleAdmin:
		admin, err := s.GetAdminByCode(ctx, code)
		if err != nil || admin == nil {
			return nil, err
		}
		principal.Email = admin.Email
	case models.RoleStudent:
		user, err := s.GetUserByCode(ctx, code)
		if err != nil || user == nil {
			return nil, err
		}
		principal.Email = user.Email
	default:
		return nil, nil
	}
	return principal, nil
}

// RevokeSessionByTokenHash marks one session revoked by token hash.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE sessions
		SET revoked_at = ?
		WHERE token_hash = ?
		  AND revoked_at IS NULL
	`), dbFormatTime(revokedAt), tokenHash)
	return err
}
