package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/room-reservations/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user persistence.User) (persistence.User, error)
	GetUser(ctx context.Context, id int64) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
}

// UserService validates registrations and answers user lookups.
type UserService struct {
	users  UserRepository
	hasher *PasswordHasher
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service. A nil hasher uses
// DefaultArgon2idParams.
func NewUserService(users UserRepository, hasher *PasswordHasher) *UserService {
	return NewUserServiceWithLogger(users, hasher, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hasher *PasswordHasher, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = NewPasswordHasher(DefaultArgon2idParams)
	}
	return &UserService{users: users, hasher: hasher, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser registers a new account. Emails are unique ignoring case.
func (s *UserService) CreateUser(ctx context.Context, input UserInput) (user persistence.User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	normalized := normalizeUserInput(input)
	logger := s.loggerWith(ctx, "CreateUser", "email", normalized.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if vErr := validateStruct(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	// The store repeats this check under its write lock; the early lookup
	// avoids paying for a password hash on an obvious duplicate.
	if _, lookupErr := s.users.GetUserByEmail(ctx, normalized.Email); lookupErr == nil {
		err = ErrAlreadyExists
		return
	} else if !errors.Is(lookupErr, persistence.ErrNotFound) {
		err = lookupErr
		return
	}

	hash, hashErr := s.hasher.Hash(normalized.Password)
	if hashErr != nil {
		err = fmt.Errorf("hash password: %w", hashErr)
		return
	}

	user, err = s.users.CreateUser(ctx, persistence.User{
		Email:        normalized.Email,
		PasswordHash: hash,
		Role:         normalized.Role,
		Name:         normalized.Name,
	})
	err = mapRepoError(err)
	return
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUser(ctx, id)
	return user, mapRepoError(err)
}

// GetUserByEmail returns the user registered with email, ignoring case.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	return user, mapRepoError(err)
}

// ListUsers returns every user in creation order.
func (s *UserService) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}
	return s.users.ListUsers(ctx)
}

// VerifyCredentials returns the user whose email and password match.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	logger := s.loggerWith(ctx, "VerifyCredentials")

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.InfoContext(ctx, "credentials rejected", "error_kind", ErrorKind(ErrInvalidCredentials))
			return persistence.User{}, ErrInvalidCredentials
		}
		return persistence.User{}, err
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		logger.InfoContext(ctx, "credentials rejected", "user_id", user.ID, "error_kind", ErrorKind(ErrInvalidCredentials))
		return persistence.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUserInput(input UserInput) UserInput {
	role := persistence.Role(strings.ToLower(strings.TrimSpace(string(input.Role))))
	if role == "" {
		role = persistence.RoleStudent
	}
	return UserInput{
		Email:    normalizeEmail(input.Email),
		Password: input.Password,
		Role:     role,
		Name:     strings.TrimSpace(input.Name),
	}
}
