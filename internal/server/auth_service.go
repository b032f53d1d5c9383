package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"labhub/internal/api"
	internalauth "labhub/internal/auth"
	"labhub/internal/models"
	"labhub/internal/store"
)

const (
	authTypeBearer    = "bearer"
	defaultSessionTTL = 24 * time.Hour
)

var errInvalidCredentials = errors.New("invalid credentials")

// AccountService handles student and admin accounts plus bearer sessions.
type AccountService struct {
	store      store.AccountStore
	sessionTTL time.Duration
	validate   *validator.Validate
	now        func() time.Time
}

type loginResult struct {
	Principal Principal
	Token     string
	ExpiresAt time.Time
}

func NewAccountService(accountStore store.AccountStore, sessionTTL time.Duration) *AccountService {
	if accountStore == nil {
		return nil
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &AccountService{
		store:      accountStore,
		sessionTTL: sessionTTL,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (a *AccountService) RegisterUser(ctx context.Context, req api.UserRegisterRequest) (*models.User, error) {
	if err := a.validateRequest(req); err != nil {
		return nil, err
	}
	email, err := internalauth.NormalizeEmail(req.Email)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	hash, err := internalauth.HashPassword(req.Password)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	now := a.now()

	user, err := a.store.CreateUser(ctx, &models.User{
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Email:        email,
		PasswordHash: hash,
		Gender:       strings.TrimSpace(req.Gender),
		Age:          req.Age,
		Degree:       strings.TrimSpace(req.Degree),
		Zipcode:      strings.TrimSpace(req.Zipcode),
		Role:         models.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, accountWriteError(err)
	}
	return user, nil
}

func (a *AccountService) LoginUser(ctx context.Context, req api.LoginRequest, now time.Time) (*loginResult, error) {
	email, err := a.loginEmail(req)
	if err != nil {
		return nil, err
	}
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil || !internalauth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, invalidCredentials()
	}
	return a.startSession(ctx, Principal{Role: models.RoleStudent, Code: user.Code, Email: user.Email}, now)
}

func (a *AccountService) GetUserProfile(ctx context.Context, code int64) (*models.User, error) {
	user, err := a.store.GetUserByCode(ctx, code)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil {
		return nil, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound)
	}
	return user, nil
}

func (a *AccountService) UpdateUserProfile(ctx context.Context, code int64, req api.UserUpdateRequest) (*models.User, error) {
	if err := a.validateRequest(req); err != nil {
		return nil, err
	}
	current, err := a.GetUserProfile(ctx, code)
	if err != nil {
		return nil, err
	}
	email, err := internalauth.NormalizeEmail(req.Email)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}

	current.Name = strings.TrimSpace(req.Name)
	current.Surname = strings.TrimSpace(req.Surname)
	current.Email = email
	current.Gender = strings.TrimSpace(req.Gender)
	current.Age = req.Age
	current.Degree = strings.TrimSpace(req.Degree)
	current.Zipcode = strings.TrimSpace(req.Zipcode)
	current.UpdatedAt = a.now()
	if req.Password != "" {
		if current.PasswordHash, err = internalauth.HashPassword(req.Password); err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidArgument)
		}
	}

	updated, err := a.store.UpdateUser(ctx, current)
	if err != nil {
		return nil, accountWriteError(err)
	}
	if updated == nil {
		return nil, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound)
	}
	return updated, nil
}

func (a *AccountService) RegisterAdmin(ctx context.Context, req api.AdminRegisterRequest) (*models.Admin, error) {
	if err := a.validateRequest(req); err != nil {
		return nil, err
	}
	email, err := internalauth.NormalizeEmail(req.Email)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	hash, err := internalauth.HashPassword(req.Password)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	now := a.now()

	admin, err := a.store.CreateAdmin(ctx, &models.Admin{
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, accountWriteError(err)
	}
	return admin, nil
}

func (a *AccountService) LoginAdmin(ctx context.Context, req api.LoginRequest, now time.Time) (*loginResult, error) {
	email, err := a.loginEmail(req)
	if err != nil {
		return nil, err
	}
	admin, err := a.store.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, storeFailure(err)
	}
	if admin == nil || !internalauth.VerifyPassword(admin.PasswordHash, req.Password) {
		return nil, invalidCredentials()
	}
	return a.startSession(ctx, Principal{Role: models.RoleAdmin, Code: admin.Code, Email: admin.Email}, now)
}

func (a *AccountService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	admins, err := a.store.ListAdmins(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	if admins == nil {
		admins = []models.Admin{}
	}
	return admins, nil
}

func (a *AccountService) UpdateAdmin(ctx context.Context, code int64, req api.AdminUpdateRequest) (*models.Admin, error) {
	if err := a.validateRequest(req); err != nil {
		return nil, err
	}
	current, err := a.store.GetAdminByCode(ctx, code)
	if err != nil {
		return nil, storeFailure(err)
	}
	if current == nil {
		return nil, notFoundCode(fmt.Errorf("admin not found"), ErrCodeAdminNotFound)
	}
	email, err := internalauth.NormalizeEmail(req.Email)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}

	current.Name = strings.TrimSpace(req.Name)
	current.Surname = strings.TrimSpace(req.Surname)
	current.Email = email
	current.UpdatedAt = a.now()
	if req.Password != "" {
		if current.PasswordHash, err = internalauth.HashPassword(req.Password); err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidArgument)
		}
	}

	updated, err := a.store.UpdateAdmin(ctx, current)
	if err != nil {
		return nil, accountWriteError(err)
	}
	if updated == nil {
		return nil, notFoundCode(fmt.Errorf("admin not found"), ErrCodeAdminNotFound)
	}
	return updated, nil
}

// AuthenticateToken resolves a bearer token to its principal, or nil.
func (a *AccountService) AuthenticateToken(ctx context.Context, token string, now time.Time) (*Principal, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	owner, err := a.store.GetSessionPrincipal(ctx, hashSessionToken(token), now)
	if err != nil || owner == nil {
		return nil, err
	}
	return &Principal{Role: owner.Role, Code: owner.Code, Email: owner.Email}, nil
}

func (a *AccountService) RevokeToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.store == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

func (a *AccountService) startSession(ctx context.Context, principal Principal, now time.Time) (*loginResult, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, internalError(err)
	}
	expiresAt := now.Add(a.sessionTTL)
	owner := store.SessionPrincipal{Role: principal.Role, Code: principal.Code, Email: principal.Email}
	if err := a.store.CreateSession(ctx, owner, hashSessionToken(token), expiresAt, now); err != nil {
		return nil, storeFailure(err)
	}
	return &loginResult{Principal: principal, Token: token, ExpiresAt: expiresAt}, nil
}

func (a *AccountService) loginEmail(req api.LoginRequest) (string, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return "", badRequestCode(fmt.Errorf("email and password are required"), ErrCodeMissingRequired)
	}
	email, err := internalauth.NormalizeEmail(req.Email)
	if err != nil {
		return "", invalidCredentials()
	}
	return email, nil
}

func (a *AccountService) validateRequest(req any) error {
	if err := a.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return badRequestCode(describeFieldError(fieldErrs[0]), validationErrorCode(fieldErrs[0]))
		}
		return badRequestCode(err, ErrCodeInvalidArgument)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "email":
		return fmt.Errorf("%s must be a valid email", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

func validationErrorCode(fe validator.FieldError) int {
	if fe.Tag() == "required" {
		return ErrCodeMissingRequired
	}
	return ErrCodeInvalidArgument
}

func accountWriteError(err error) error {
	if errors.Is(err, store.ErrDuplicateEmail) {
		return conflictCode(err, ErrCodeConflict)
	}
	return storeFailure(err)
}

func invalidCredentials() error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeInvalidCredentials, errInvalidCredentials)
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
