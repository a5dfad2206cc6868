package auth

import (
	"errors"
	"testing"
	"time"
)

// fakeHash stands in where the repository never verifies the digest.
const fakeHash = "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"

// newUserRepo returns a repository whose clock advances a minute per write.
func newUserRepo(t *testing.T) *SQLiteUserRepository {
	t.Helper()
	repo := NewUserRepository(testDB(t))
	next := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		next = next.Add(time.Minute)
		return next
	}
	return repo
}

func mustCreate(t *testing.T, repo *SQLiteUserRepository, username string, role Role) *User {
	t.Helper()
	u := &User{Username: username, PasswordHash: fakeHash, Role: role}
	if err := repo.Create(t.Context(), u); err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	return u
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := newUserRepo(t)
	created := mustCreate(t, repo, "Admin", RoleAdmin)

	if created.ID == 0 {
		t.Fatal("Create() left ID unset")
	}
	want := time.Date(2026, 1, 10, 8, 1, 0, 0, time.UTC)
	if !created.CreatedAt.Equal(want) || !created.UpdatedAt.Equal(want) {
		t.Errorf("timestamps = %v / %v, want %v", created.CreatedAt, created.UpdatedAt, want)
	}

	byID, err := repo.GetByID(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	byName, err := repo.GetByUsername(t.Context(), "Admin")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	for _, got := range []*User{byID, byName} {
		if got.ID != created.ID || got.Role != RoleAdmin || got.PasswordHash != fakeHash || !got.CreatedAt.Equal(want) {
			t.Errorf("read back %+v, want %+v", got, created)
		}
	}

	if _, err := repo.GetByUsername(t.Context(), "admin"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername(lowercase) error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByID(t.Context(), 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_CreateRejects(t *testing.T) {
	repo := newUserRepo(t)
	mustCreate(t, repo, "duplicate", RoleUser)

	tests := []struct {
		name string
		user *User
		want error
	}{
		{"duplicate username", &User{Username: "duplicate", PasswordHash: fakeHash, Role: RoleAdmin}, ErrUsernameExists},
		{"unknown role", &User{Username: "x", PasswordHash: fakeHash, Role: Role("owner")}, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(t.Context(), tt.user); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	repo := newUserRepo(t)

	users, err := repo.List(t.Context())
	if err != nil || users == nil || len(users) != 0 {
		t.Fatalf("List() on empty = %v, %v; want empty slice", users, err)
	}

	for _, name := range []string{"alice", "bob", "charlie"} {
		mustCreate(t, repo, name, RoleUser)
	}

	users, err = repo.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"charlie", "bob", "alice"}
	if len(users) != len(want) {
		t.Fatalf("len = %d, want %d", len(users), len(want))
	}
	for i, u := range users {
		if u.Username != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, u.Username, want[i])
		}
	}

	if n, err := repo.Count(t.Context()); err != nil || n != 3 {
		t.Errorf("Count() = %d, %v; want 3", n, err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	repo := newUserRepo(t)
	user := mustCreate(t, repo, "updateme", RoleUser)
	mustCreate(t, repo, "taken", RoleUser)
	created := user.CreatedAt

	user.Username, user.Role = "renamed", RoleAdmin
	if err := repo.Update(t.Context(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !user.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt = %v, want after %v", user.UpdatedAt, created)
	}

	got, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "renamed" || got.Role != RoleAdmin || !got.CreatedAt.Equal(created) {
		t.Errorf("after update = %+v", got)
	}

	user.Username = "taken"
	if err := repo.Update(t.Context(), user); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Update(taken name) error = %v, want ErrUsernameExists", err)
	}

	ghost := &User{ID: 999, Username: "ghost", PasswordHash: fakeHash, Role: RoleUser}
	if err := repo.Update(t.Context(), ghost); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	repo := newUserRepo(t)
	user := mustCreate(t, repo, "passchange", RoleUser)

	digest, err := HashPassword("new-password")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdatePassword(t.Context(), user.ID, digest); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := repo.GetByID(t.Context(), user.ID)
	if ok, _ := VerifyPassword("new-password", got.PasswordHash); !ok {
		t.Error("new password does not verify after UpdatePassword")
	}
	if err := repo.UpdatePassword(t.Context(), 999, digest); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdatePassword(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo := newUserRepo(t)
	user := mustCreate(t, repo, "deleteme", RoleUser)

	if err := repo.Delete(t.Context(), user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(t.Context(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(t.Context(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second Delete() error = %v, want ErrUserNotFound", err)
	}
}

func TestScanUser_RejectsRoleOutsideClosedSet(t *testing.T) {
	repo := newUserRepo(t)
	user := mustCreate(t, repo, "legacy", RoleUser)

	// The CHECK constraint normally blocks this row.
	if _, err := repo.db.ExecContext(t.Context(), "PRAGMA ignore_check_constraints = ON"); err != nil {
		t.Fatalf("PRAGMA error = %v", err)
	}
	if _, err := repo.db.ExecContext(t.Context(), "UPDATE users SET role = 'owner' WHERE id = ?", user.ID); err != nil {
		t.Fatalf("UPDATE error = %v", err)
	}

	if _, err := repo.GetByID(t.Context(), user.ID); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("GetByID() error = %v, want ErrInvalidRole", err)
	}
}
