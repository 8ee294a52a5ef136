package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/internal/users"
	pkgAuth "github.com/angelmondragon/pos-catalog-backend/pkg/auth"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/security"
	"github.com/google/uuid"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	tokenTypeBearer           = "Bearer"
)

// Service signs staff in and manages staff accounts.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	// EnsureAdmin creates an admin with the given credentials unless an
	// account with that email exists. It reports whether one was created.
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	users       userRepository
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.JWTConfig.AccessTTL <= 0 {
		return nil, fmt.Errorf("jwt access ttl must be positive")
	}
	return &service{
		users:       params.UserRepo,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update last login")
	}
	user.LastLoginAt = &now

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, s.jwtCfg.AccessTTL, pkgAuth.AccessTokenPayload{
		Subject: user.ID.String(),
		Role:    user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   now.Add(s.jwtCfg.AccessTTL),
		User:        users.FromModel(user),
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := normalizeEmail(req.Email)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "required"
	}
	role, err := enums.ParseStaffRole(strings.TrimSpace(req.Role))
	if err != nil {
		fields["role"] = "must be one of admin, staff"
	}
	switch {
	case len([]rune(req.Password)) < s.passwordCfg.MinLength:
		fields["password"] = fmt.Sprintf("must be at least %d characters", s.passwordCfg.MinLength)
	case len(req.Password) > security.MaxPasswordBytes:
		fields["password"] = fmt.Sprintf("must be at most %d bytes", security.MaxPasswordBytes)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account").WithDetails(fields)
	}

	var username *string
	if req.Username != nil {
		if trimmed := strings.TrimSpace(*req.Username); trimmed != "" {
			username = &trimmed
		}
	}

	return s.create(ctx, users.CreateUserDTO{Email: email, Username: username, Role: role}, req.Password)
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	normalized := normalizeEmail(email)
	if _, err := s.users.FindByEmail(ctx, normalized); err == nil {
		return false, nil
	} else if !db.IsNotFound(err) {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lookup user")
	}

	_, err := s.Register(ctx, RegisterRequest{Email: normalized, Password: password, Role: enums.StaffRoleAdmin.String()})
	if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
		// Another instance created it first.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) create(ctx context.Context, dto users.CreateUserDTO, password string) (*users.UserDTO, error) {
	if _, err := s.users.FindByEmail(ctx, dto.Email); err == nil {
		return nil, emailTaken()
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check user email")
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	dto.PasswordHash = hash

	user, err := s.users.Create(ctx, dto)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, emailTaken()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}
	return users.FromModel(user), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailTaken() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "email already registered").
		WithDetails(map[string]string{"email": "duplicate"})
}
