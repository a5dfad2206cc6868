package auth

import (
	"errors"
	"testing"
)

func TestHasPermission_Admin(t *testing.T) {
	for _, perm := range []Permission{PermDashboardRead, PermConfigWrite, PermUserManage, PermAuditRead} {
		if !HasPermission(RoleAdmin, perm) {
			t.Errorf("admin should have %s", perm)
		}
	}
}

func TestHasPermission_User(t *testing.T) {
	if !HasPermission(RoleUser, PermDashboardRead) {
		t.Errorf("user should have %s", PermDashboardRead)
	}
	for _, perm := range []Permission{PermConfigWrite, PermUserManage, PermAuditRead} {
		if HasPermission(RoleUser, perm) {
			t.Errorf("user should NOT have %s", perm)
		}
	}
}

func TestHasPermission_UnknownRole(t *testing.T) {
	if HasPermission(Role("owner"), PermDashboardRead) {
		t.Error("unknown role should have no permissions")
	}
	if HasPermission("", PermDashboardRead) {
		t.Error("empty role should have no permissions")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"user", RoleUser, false},
		{"Admin", "", true},
		{"owner", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidRole) {
				t.Errorf("ParseRole(%q) error = %v, want ErrInvalidRole", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
