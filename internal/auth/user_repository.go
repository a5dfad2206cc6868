package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
)

// UserRepository persists accounts. Usernames are unique and compared
// case-sensitively.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

const selectUser = "SELECT id, username, password_hash, role, created_at, updated_at FROM users"

// SQLiteUserRepository stores accounts in the users table.
type SQLiteUserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository returns a repository backed by db.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, now: time.Now}
}

// stamp returns the current time as stored and as read back.
func (r *SQLiteUserRepository) stamp() (string, time.Time) {
	s := database.FormatTime(r.now())
	t, _ := database.ParseTime(s) //nolint:errcheck // FormatTime output always parses
	return s, t
}

// Create inserts user and fills ID, CreatedAt and UpdatedAt.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if !user.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, user.Role)
	}

	s, at := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, string(user.Role), s, s)
	if err != nil {
		return userWriteError("creating user", err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading new user id: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = at, at
	return nil
}

// GetByID returns the account with id or ErrUserNotFound.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+" WHERE id = ?", id))
}

// GetByUsername returns the account with an exact username match or ErrUserNotFound.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+" WHERE username = ?", username))
}

// List returns every account, newest first.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Update rewrites username, password hash and role.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	if !user.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, user.Role)
	}

	s, at := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ?, role = ?, updated_at = ? WHERE id = ?`,
		user.Username, user.PasswordHash, string(user.Role), s, user.ID)
	if err := oneRow(res, userWriteError("updating user", err)); err != nil {
		return err
	}
	user.UpdatedAt = at
	return nil
}

// UpdatePassword replaces the stored hash and bumps UpdatedAt.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s, _ := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, s, id)
	return oneRow(res, userWriteError("updating password", err))
}

// Delete removes the account. Config rows it edited keep updated_by NULL.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return oneRow(res, userWriteError("deleting user", err))
}

// Count returns the number of accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// userWriteError maps a unique-constraint failure to ErrUsernameExists.
func userWriteError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrUsernameExists
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// oneRow reports ErrUserNotFound when a write touched no row.
func oneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports it
		return ErrUserNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUser rejects stored roles outside the closed set.
func scanUser(s scanner) (*User, error) {
	var (
		u                    User
		role                 string
		createdAt, updatedAt string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	var err error
	if u.Role, err = ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %d: %w", u.ID, err)
	}
	if u.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("user %d created_at: %w", u.ID, err)
	}
	if u.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("user %d updated_at: %w", u.ID, err)
	}
	return &u, nil
}
