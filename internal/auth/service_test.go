package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const serviceTestSecret = "test-secret-key-at-least-32-characters-long"

func testService(t *testing.T) (*Service, *SQLiteUserRepository) {
	t.Helper()
	repo := NewUserRepository(testDB(t))
	svc := NewService(repo, ServiceConfig{
		Secret:   serviceTestSecret,
		TokenTTL: time.Hour,
		Logger:   discardLogger(),
	})
	return svc, repo
}

func ptr[T any](v T) *T { return &v }

func TestService_SignupForcesUserRole(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, "new_user", "secret1")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if user.Role != RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, RoleUser)
	}

	stored, err := repo.GetByUsername(ctx, "new_user")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if stored.Role != RoleUser {
		t.Errorf("stored Role = %q, want %q", stored.Role, RoleUser)
	}
	if stored.PasswordHash == "secret1" || !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Error("password must be stored as an argon2id digest")
	}
}

func TestService_SignupDuplicate(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "taken", "secret1"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if _, err := svc.Signup(ctx, "taken", "secret2"); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("second Signup() error = %v, want ErrUsernameExists", err)
	}
}

func TestService_RegisterRole(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		role     Role
		want     Role
		wantErr  error
	}{
		{name: "explicit admin", username: "a1", role: RoleAdmin, want: RoleAdmin},
		{name: "explicit user", username: "u1", role: RoleUser, want: RoleUser},
		{name: "omitted defaults to user", username: "u2", role: "", want: RoleUser},
		{name: "unknown role rejected", username: "x1", role: Role("owner"), wantErr: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Register(ctx, tt.username, "secret1", tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if user.Role != tt.want {
				t.Errorf("Role = %q, want %q", user.Role, tt.want)
			}
		})
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "admin_cahaya", "password123", RoleAdmin)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "admin_cahaya", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Login() returned empty token")
	}
	if result.User.ID != created.ID {
		t.Errorf("User.ID = %d, want %d", result.User.ID, created.ID)
	}

	p, err := svc.Authenticate(result.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.UserID != created.ID || p.Username != "admin_cahaya" || p.Role != RoleAdmin {
		t.Errorf("Authenticate() = %+v, want id %d admin_cahaya admin", p, created.ID)
	}
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "user_biasa", "user123"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "user_biasa", "nope")
	_, unknownUser := svc.Login(ctx, "nobody", "user123")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongPassword)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("error texts differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestService_LoginUpgradesLegacyBcrypt(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}
	user := &User{Username: "migrated", PasswordHash: string(legacy), Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Login(ctx, "migrated", "password123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	stored, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Errorf("PasswordHash = %q, want argon2id after login", stored.PasswordHash[:8])
	}
	if _, err := svc.Login(ctx, "migrated", "password123"); err != nil {
		t.Errorf("Login() after upgrade error = %v", err)
	}
}

func TestService_ProfileAfterDeletion(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, "ephemeral", "secret1")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	got, err := svc.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if got.Username != "ephemeral" {
		t.Errorf("Username = %q, want %q", got.Username, "ephemeral")
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Profile(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Profile() after delete error = %v, want ErrUserNotFound", err)
	}
}

func TestService_UpdateUser(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	admin, _ := svc.Register(ctx, "boss", "secret1", RoleAdmin)
	target, _ := svc.Register(ctx, "worker", "secret1", RoleUser)
	caller := Principal{UserID: admin.ID, Username: admin.Username, Role: admin.Role}

	updated, err := svc.UpdateUser(ctx, caller, target.ID, UserPatch{
		Username: ptr("foreman"),
		Password: ptr("newsecret"),
		Role:     ptr(RoleAdmin),
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Username != "foreman" || updated.Role != RoleAdmin {
		t.Errorf("UpdateUser() = %s/%s, want foreman/admin", updated.Username, updated.Role)
	}
	if _, err := svc.Login(ctx, "foreman", "newsecret"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}

	// Absent fields stay as they were.
	again, err := svc.UpdateUser(ctx, caller, target.ID, UserPatch{})
	if err != nil {
		t.Fatalf("UpdateUser(empty) error = %v", err)
	}
	if again.Username != "foreman" || again.Role != RoleAdmin {
		t.Errorf("empty patch changed user to %s/%s", again.Username, again.Role)
	}
}

func TestService_UpdateUserSelfProtection(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	admin, _ := svc.Register(ctx, "boss", "secret1", RoleAdmin)
	caller := Principal{UserID: admin.ID, Username: admin.Username, Role: admin.Role}

	if _, err := svc.UpdateUser(ctx, caller, admin.ID, UserPatch{Role: ptr(RoleUser)}); !errors.Is(err, ErrSelfRoleChange) {
		t.Errorf("self role change error = %v, want ErrSelfRoleChange", err)
	}

	// Re-asserting the current role and renaming yourself are allowed.
	if _, err := svc.UpdateUser(ctx, caller, admin.ID, UserPatch{Role: ptr(RoleAdmin), Username: ptr("boss2")}); err != nil {
		t.Errorf("self update keeping role error = %v", err)
	}
}

func TestService_UpdateUserErrors(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	admin, _ := svc.Register(ctx, "boss", "secret1", RoleAdmin)
	other, _ := svc.Register(ctx, "other", "secret1", RoleUser)
	caller := Principal{UserID: admin.ID, Role: RoleAdmin}

	if _, err := svc.UpdateUser(ctx, caller, 9999, UserPatch{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user error = %v, want ErrUserNotFound", err)
	}
	if _, err := svc.UpdateUser(ctx, caller, other.ID, UserPatch{Username: ptr("boss")}); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("duplicate username error = %v, want ErrUsernameExists", err)
	}
}

func TestService_DeleteUser(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	admin, _ := svc.Register(ctx, "boss", "secret1", RoleAdmin)
	target, _ := svc.Register(ctx, "leaver", "secret1", RoleUser)
	caller := Principal{UserID: admin.ID, Role: RoleAdmin}

	if err := svc.DeleteUser(ctx, caller, admin.ID); !errors.Is(err, ErrSelfDeletion) {
		t.Errorf("self delete error = %v, want ErrSelfDeletion", err)
	}
	if err := svc.DeleteUser(ctx, caller, target.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := svc.DeleteUser(ctx, caller, target.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrUserNotFound", err)
	}
}

func TestService_AuthenticateRejectsForeignSecret(t *testing.T) {
	svc, _ := testService(t)

	token, err := GenerateAccessToken(&User{ID: 1, Role: RoleAdmin}, []byte("some-other-secret-that-is-long-enough"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := svc.Authenticate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Authenticate() error = %v, want ErrTokenInvalid", err)
	}
}
