package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"codeverse/internal/common/db"
	"codeverse/internal/user/repository"
	appErr "codeverse/pkg/errors"
	"codeverse/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL    = 7 * 24 * time.Hour
	minPasswordLength  = 8
	maxPasswordLength  = 72 // bcrypt input limit
)

// Config holds auth service dependencies and settings.
type Config struct {
	UserRepo  repository.UserRepository
	Blocklist repository.TokenBlocklist

	JWTSecret []byte
	JWTIssuer string
	TokenTTL  time.Duration
	DBTimeout time.Duration
}

// AuthService owns registration, login and session token lifecycle.
type AuthService struct {
	userRepo  repository.UserRepository
	blocklist repository.TokenBlocklist

	jwtSecret []byte
	jwtIssuer string
	tokenTTL  time.Duration
	dbTimeout time.Duration
}

// RegisterInput describes a signup request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Age       int
}

// LoginInput describes a login request.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult carries a signed-in user and their session token.
type AuthResult struct {
	User      *repository.User
	Token     string
	ExpiresAt time.Time
}

// Session identifies an authenticated caller.
type Session struct {
	UserID int64
	Role   repository.UserRole
}

// NewAuthService creates a new auth service.
func NewAuthService(cfg Config) (*AuthService, error) {
	if cfg.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if cfg.Blocklist == nil {
		return nil, fmt.Errorf("token blocklist is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthService{
		userRepo:  cfg.UserRepo,
		blocklist: cfg.Blocklist,
		jwtSecret: cfg.JWTSecret,
		jwtIssuer: cfg.JWTIssuer,
		tokenTTL:  cfg.TokenTTL,
		dbTimeout: cfg.DBTimeout,
	}, nil
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	if err := validateRegistration(input); err != nil {
		return AuthResult{}, err
	}

	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.userRepo.ExistsByEmail(ctxDB, nil, input.Email)
	if err != nil {
		return AuthResult{}, appErr.Wrapf(err, appErr.DatabaseError, "check email failed")
	}
	if exists {
		return AuthResult{}, appErr.New(appErr.EmailAlreadyExists)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, appErr.Wrapf(err, appErr.InternalServerError, "hash password failed")
	}

	user := &repository.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(passwordHash),
		Age:          input.Age,
		Role:         repository.UserRoleUser,
	}
	if _, err := s.userRepo.Create(ctxDB, nil, user); err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return AuthResult{}, appErr.New(appErr.EmailAlreadyExists)
		}
		return AuthResult{}, appErr.Wrapf(err, appErr.DatabaseError, "create user failed")
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return AuthResult{}, err
	}
	logger.Info(ctx, "user registered", zap.Int64("user_id", user.ID))
	return AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if input.Email == "" {
		return AuthResult{}, appErr.ValidationError("email", "required")
	}
	if input.Password == "" {
		return AuthResult{}, appErr.ValidationError("password", "required")
	}

	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctxDB, nil, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, appErr.New(appErr.InvalidCredentials)
		}
		return AuthResult{}, appErr.Wrapf(err, appErr.DatabaseError, "load user failed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResult{}, appErr.New(appErr.InvalidCredentials)
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the session token until its original expiry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.blocklist.Revoke(ctx, token, expiresAt); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "revoke token failed")
	}
	return nil
}

// Authenticate validates a session token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.blocklist.IsRevoked(ctx, token)
	if err != nil {
		return Session{}, appErr.Wrapf(err, appErr.CacheError, "check token revocation failed")
	}
	if revoked {
		return Session{}, appErr.New(appErr.TokenRevoked)
	}
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: userID, Role: repository.UserRole(claims.Role)}, nil
}

// GetProfile returns the account for an authenticated user.
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*repository.User, error) {
	if userID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	user, err := s.userRepo.GetByID(ctxDB, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErr.New(appErr.UserNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load user failed")
	}
	return user, nil
}

// DeleteAccount removes the user and their solved-set rows.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.userRepo.Delete(ctxDB, nil, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return appErr.New(appErr.UserNotFound)
		}
		return appErr.Wrapf(err, appErr.DatabaseError, "delete user failed")
	}
	return nil
}

// SolvedProblems returns the ids of problems the user has solved.
func (s *AuthService) SolvedProblems(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	ctxDB, cancel := s.withTimeout(ctx)
	defer cancel()
	problemIDs, err := s.userRepo.ListSolvedProblems(ctxDB, nil, userID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list solved problems failed")
	}
	return problemIDs, nil
}

func validateRegistration(input RegisterInput) error {
	if input.FirstName == "" {
		return appErr.ValidationError("first_name", "required")
	}
	if input.Email == "" {
		return appErr.ValidationError("email", "required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return appErr.New(appErr.InvalidEmail)
	}
	if len(input.Password) < minPasswordLength {
		return appErr.New(appErr.PasswordTooWeak).WithMessagef("password must be at least %d characters", minPasswordLength)
	}
	if len(input.Password) > maxPasswordLength {
		return appErr.New(appErr.PasswordTooWeak).WithMessagef("password must be at most %d characters", maxPasswordLength)
	}
	return nil
}

func (s *AuthService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.dbTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.dbTimeout)
}
