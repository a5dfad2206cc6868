package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service implements account operations on top of a UserRepository:
// login, self-signup, admin registration, profile lookup and admin user
// management. It holds no credential cache; every call reads and writes
// through the repository.
type Service struct {
	users  UserRepository
	secret []byte
	ttl    time.Duration
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// ServiceConfig holds token settings for a Service.
type ServiceConfig struct {
	Secret   string
	TokenTTL time.Duration
	Logger   *slog.Logger
}

// NewService creates an auth Service.
func NewService(users UserRepository, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		logger: logger,
	}
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token string
	User  *User
}

// UserPatch carries the optional fields of an admin user update.
// Nil fields are left unchanged.
type UserPatch struct {
	Username *string
	Password *string
	Role     *Role
}

// Login exchanges credentials for a signed token.
//
// An unknown username and a wrong password both return
// ErrInvalidCredentials, and both paths run one password verification so
// response timing does not reveal which usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			VerifyPassword(password, s.timingHash()) //nolint:errcheck // equalises timing only
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, err := GenerateAccessToken(user, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user}, nil
}

// Signup creates a self-registered account. The role is always RoleUser.
func (s *Service) Signup(ctx context.Context, username, password string) (*User, error) {
	return s.createUser(ctx, username, password, RoleUser)
}

// Register creates an account on behalf of an admin. An empty role
// defaults to RoleUser; anything outside the closed set is rejected.
func (s *Service) Register(ctx context.Context, username, password string, role Role) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return s.createUser(ctx, username, password, role)
}

// Profile returns the account behind a verified token. A user deleted
// after the token was issued yields ErrUserNotFound.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers returns every account, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// UpdateUser applies a partial update to the account identified by id.
//
// Returns ErrUserNotFound if id does not exist, ErrSelfRoleChange if the
// caller targets their own account with a different role, and
// ErrUsernameExists if the new username is taken.
func (s *Service) UpdateUser(ctx context.Context, caller Principal, id int64, patch UserPatch) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Role != nil && caller.UserID == user.ID && *patch.Role != user.Role {
		return nil, ErrSelfRoleChange
	}

	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Password != nil {
		hash, err := HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *patch.Role)
		}
		user.Role = *patch.Role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the account identified by id.
// Returns ErrUserNotFound if absent and ErrSelfDeletion if id is the caller.
func (s *Service) DeleteUser(ctx context.Context, caller Principal, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.ID == caller.UserID {
		return ErrSelfDeletion
	}

	return s.users.Delete(ctx, user.ID)
}

// Authenticate verifies a bearer token and returns the caller's identity.
func (s *Service) Authenticate(token string) (Principal, error) {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return Principal{}, err
	}
	return claims.Principal()
}

func (s *Service) createUser(ctx context.Context, username, password string, role Role) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// upgradeHash replaces a legacy or weak digest after a successful login.
// Failure is logged and otherwise ignored; the old digest still works.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Warn("rehashing password failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Warn("storing upgraded password hash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.logger.Info("password hash upgraded", "user_id", user.ID)
}

// timingHash is a throwaway digest verified when the username is unknown.
func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = HashPassword("timing-equaliser") //nolint:errcheck // crypto/rand failure leaves an empty hash, which only fails verification
	})
	return s.dummyHash
}
