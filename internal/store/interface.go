package store

import (
	"context"
	"time"

	"labhub/internal/models"
)

// LabStore abstracts lab, follower and attendance persistence.
type LabStore interface {
	InsertLab(ctx context.Context, lab *models.Lab) (int64, string, error)
	GetLab(ctx context.Context, code int64) (*models.Lab, error)
	ListLabs(ctx context.Context) ([]models.Lab, error)
	ReplaceLab(ctx context.Context, code int64, lab *models.Lab) (*models.Lab, error)
	DeleteLab(ctx context.Context, code int64) (bool, error)
	DeleteAttendanceForLab(ctx context.Context, code int64) error
	DeleteFollowersForLab(ctx context.Context, code int64) error

	AddFollower(ctx context.Context, labCode, userCode int64) error
	RemoveFollower(ctx context.Context, labCode, userCode int64) error
	CountFollowers(ctx context.Context, labCode int64) (int, error)
	IsFollowing(ctx context.Context, labCode, userCode int64) (bool, error)

	RecordAttendance(ctx context.Context, labCode, userCode int64, at time.Time) error
	CountAttendance(ctx context.Context, labCode int64) (int, error)
}

// AccountStore abstracts student, admin and session persistence.
type AccountStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByCode(ctx context.Context, code int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)

	CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetAdminByCode(ctx context.Context, code int64) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	UpdateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	CountAdmins(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, principal SessionPrincipal, tokenHash string, expiresAt, createdAt time.Time) error
	GetSessionPrincipal(ctx context.Context, tokenHash string, now time.Time) (*SessionPrincipal, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

var (
	_ LabStore     = (*Store)(nil)
	_ AccountStore = (*Store)(nil)
)
